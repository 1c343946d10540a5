package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/dispatch"
	"github.com/ferret-index/ferret/pkg/index"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/metrics"
	"github.com/ferret-index/ferret/pkg/status"
)

// brokerCallTimeout bounds every handler-initiated broker operation.
const brokerCallTimeout = 10 * time.Second

// Config wires the coordinator state the HTTP surface serves.
type Config struct {
	Dispatcher  *dispatch.Dispatcher
	Query       *index.QueryEngine
	Index       *index.Index
	Pending     *index.PendingSet
	Workers     *status.Aggregator
	UploadsPath string
	IndexPath   string
}

// Server hosts the coordinator HTTP/JSON API.
type Server struct {
	cfg    Config
	engine *gin.Engine
	http   *http.Server
	logger zerolog.Logger
}

// NewServer builds the router with all coordinator endpoints registered.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: log.WithComponent("api"),
	}

	engine.POST("/trigger-local-indexing/", s.triggerLocalIndexing)
	engine.POST("/search/", s.search)
	engine.GET("/index-status/", s.indexStatus)
	engine.POST("/index/save/", s.saveIndex)
	engine.POST("/index/load/", s.loadIndex)
	engine.GET("/healthz", s.healthz)
	engine.GET("/workers/status/", s.workersStatus)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

// Start serves the API on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// statusResponse is the {message, details} envelope shared by several
// endpoints.
type statusResponse struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func errorJSON(c *gin.Context, code int, detail string) {
	c.JSON(code, gin.H{"detail": detail})
}

func (s *Server) triggerLocalIndexing(c *gin.Context) {
	scanPath := c.PostForm("path")
	if scanPath == "" {
		scanPath = s.cfg.UploadsPath
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), brokerCallTimeout)
	defer cancel()

	report, err := s.cfg.Dispatcher.IndexDirectory(ctx, scanPath)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrNotADirectory):
			errorJSON(c, http.StatusBadRequest, fmt.Sprintf("local uploads directory not found: %s", scanPath))
		case errors.Is(err, dispatch.ErrNoWorkersAvailable):
			errorJSON(c, http.StatusServiceUnavailable, "no workers available to process indexing tasks")
		case errors.Is(err, broker.ErrUnavailable):
			errorJSON(c, http.StatusServiceUnavailable, "service temporarily unavailable, cannot reach the broker")
		default:
			errorJSON(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	failed := make([][]string, 0, len(report.FailedFiles))
	for _, ff := range report.FailedFiles {
		failed = append(failed, []string{ff.Name, ff.Reason})
	}

	var message string
	if report.FilesFound == 0 {
		message = fmt.Sprintf("No .txt files found in %s. Nothing to index.", scanPath)
	} else {
		message = fmt.Sprintf("Found %d .txt files. Dispatched %d for indexing. %d file(s) failed processing locally.",
			report.FilesFound, len(report.SuccessfulDispatches), len(report.FailedFiles))
	}

	c.JSON(http.StatusAccepted, statusResponse{
		Message: message,
		Details: map[string]any{
			"successful_dispatches":  report.SuccessfulDispatches,
			"failed_files":           failed,
			"docs_currently_pending": report.DocsPending,
		},
	})
}

type searchRequest struct {
	Term string `json:"term"`
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid search request body")
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		errorJSON(c, http.StatusBadRequest, "search term cannot be empty")
		return
	}

	postings := s.cfg.Query.Search(req.Term)
	metrics.SearchesTotal.Inc()

	docs := make([][]any, 0, len(postings))
	for _, p := range postings {
		docs = append(docs, []any{p.DocID, p.Frequency})
	}
	c.JSON(http.StatusOK, gin.H{"docs": docs})
}

func (s *Server) indexStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Message: "Current index status.",
		Details: map[string]any{
			"total_terms_in_index":      s.cfg.Index.TermCount(),
			"documents_pending_results": s.cfg.Pending.Len(),
		},
	})
}

func (s *Server) saveIndex(c *gin.Context) {
	if err := s.cfg.Index.Save(s.cfg.IndexPath); err != nil {
		s.logger.Error().Err(err).Str("path", s.cfg.IndexPath).Msg("failed to save index")
		errorJSON(c, http.StatusInternalServerError, fmt.Sprintf("failed to save index: %v", err))
		return
	}
	s.logger.Info().Str("path", s.cfg.IndexPath).Msg("index saved")
	c.JSON(http.StatusOK, statusResponse{
		Message: fmt.Sprintf("Global index saved to %s", s.cfg.IndexPath),
	})
}

func (s *Server) loadIndex(c *gin.Context) {
	if err := s.cfg.Index.Load(s.cfg.IndexPath); err != nil {
		s.logger.Error().Err(err).Str("path", s.cfg.IndexPath).Msg("failed to load index")
		errorJSON(c, http.StatusInternalServerError, fmt.Sprintf("failed to load index: %v", err))
		return
	}
	// A reload discards knowledge of in-flight dispatches.
	s.cfg.Pending.Clear()
	metrics.IndexTerms.Set(float64(s.cfg.Index.TermCount()))
	metrics.DocsPending.Set(0)

	s.logger.Info().
		Str("path", s.cfg.IndexPath).
		Int("terms", s.cfg.Index.TermCount()).
		Msg("index reloaded")
	c.JSON(http.StatusOK, statusResponse{
		Message: fmt.Sprintf("Global index reloaded from %s. %d terms loaded.", s.cfg.IndexPath, s.cfg.Index.TermCount()),
	})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Coordinator is running",
	})
}

func (s *Server) workersStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), brokerCallTimeout)
	defer cancel()

	workers, err := s.cfg.Workers.ListWorkers(ctx)
	if err != nil {
		errorJSON(c, http.StatusServiceUnavailable, "service temporarily unavailable, cannot reach the broker")
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}
