package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/metrics"
	"github.com/ferret-index/ferret/pkg/textnorm"
	"github.com/ferret-index/ferret/pkg/types"
)

const (
	// dequeueTimeout keeps the blocking pop short so shutdown stays
	// responsive.
	dequeueTimeout = 1 * time.Second

	// brokerRetryDelay is how long the task loop sleeps after a broker
	// failure before retrying.
	brokerRetryDelay = 5 * time.Second

	// publishTimeout bounds the result publish; a result that cannot be
	// published within it is dropped (at-most-once delivery).
	publishTimeout = 5 * time.Second
)

// Config holds worker configuration.
type Config struct {
	IDPrefix          string
	Language          types.Language
	HeartbeatInterval time.Duration
	Broker            *broker.Client
}

// Worker consumes document tasks from its own queue, computes per-document
// term frequencies, publishes partial results, and reports heartbeats.
type Worker struct {
	id       string
	language types.Language
	interval time.Duration
	broker   *broker.Client
	sampler  *sampler
	logger   zerolog.Logger
}

// ComputeWorkerID derives the stable process identity: {prefix}-{hostname}-{pid}.
func ComputeWorkerID(prefix string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s-%s-%d", prefix, hostname, os.Getpid())
}

// New creates a worker instance.
func New(cfg Config) (*Worker, error) {
	if cfg.Broker == nil {
		return nil, errors.New("worker requires a broker client")
	}
	if cfg.HeartbeatInterval <= 0 {
		return nil, errors.New("worker requires a positive heartbeat interval")
	}
	id := ComputeWorkerID(cfg.IDPrefix)
	smp, err := newSampler()
	if err != nil {
		return nil, fmt.Errorf("initialize load sampler: %w", err)
	}
	return &Worker{
		id:       id,
		language: cfg.Language,
		interval: cfg.HeartbeatInterval,
		broker:   cfg.Broker,
		sampler:  smp,
		logger:   log.WithWorkerID(id),
	}, nil
}

// ID returns the worker's identity.
func (w *Worker) ID() string {
	return w.id
}

// Run starts the task loop and the heartbeat loop and blocks until ctx is
// cancelled. The worker holds no state worth draining; cancellation simply
// stops both loops. The heartbeat key then expires within three intervals
// and the coordinator stops routing to this worker.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Str("language", string(w.language)).
		Dur("heartbeat_interval", w.interval).
		Msg("worker starting, waiting for tasks on own queue")

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		w.heartbeatLoop(ctx)
	}()

	w.taskLoop(ctx)
	<-heartbeatDone

	w.logger.Info().Msg("worker stopped")
	return ctx.Err()
}

// taskLoop drains the worker's own queue until ctx is cancelled.
func (w *Worker) taskLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := w.broker.BlockingDequeue(ctx, w.id, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, broker.ErrUnavailable) {
				w.logger.Error().Err(err).Msg("broker unavailable, retrying dequeue")
				if !sleepCtx(ctx, brokerRetryDelay) {
					return
				}
				continue
			}
			// Undecodable task: drop it and keep the loop alive.
			w.logger.Error().Err(err).Msg("dropping undecodable task")
			continue
		}
		if task == nil {
			continue
		}
		w.processTask(ctx, task)
	}
}

// processTask normalizes a document, computes its term frequencies, and
// publishes the partial result. A document with no tokens after
// normalization still publishes an empty partial so the coordinator can
// clear the pending entry.
func (w *Worker) processTask(ctx context.Context, task *types.DocumentTask) {
	logger := w.logger.With().Str("doc_id", task.DocID).Logger()
	logger.Info().Int("content_len", len(task.Content)).Msg("processing document")

	tokens := textnorm.Normalize(task.Content, w.language)
	freqs := textnorm.TermFrequencies(tokens)
	metrics.DocumentsProcessed.Inc()

	result := types.PartialIndexResult{
		WorkerID: w.id,
		DocID:    task.DocID,
		Partial:  shapePartial(task.DocID, freqs),
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := w.broker.PublishResult(pubCtx, result); err != nil {
		// No retry: delivery is at most once.
		metrics.ResultPublishFailures.Inc()
		logger.Error().Err(err).Msg("failed to publish partial result, discarding")
		return
	}
	logger.Debug().Int("terms", len(result.Partial)).Msg("published partial result")
}

// shapePartial converts a flat term-frequency map into the doubly-keyed
// wire shape {term: {docID: freq}}.
func shapePartial(docID string, freqs map[string]int) map[string]map[string]int {
	partial := make(map[string]map[string]int, len(freqs))
	for term, freq := range freqs {
		partial[term] = map[string]int{docID: freq}
	}
	return partial
}

// sleepCtx sleeps for d or until ctx is cancelled, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
