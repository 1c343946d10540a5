package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferret-index/ferret/pkg/api"
	"github.com/ferret-index/ferret/pkg/dispatch"
	"github.com/ferret-index/ferret/pkg/index"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/merger"
	"github.com/ferret-index/ferret/pkg/status"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the indexing coordinator",
	Long: `Run the coordinator: load the index snapshot, start the partial-results
merger, and serve the HTTP API for indexing triggers, search, and worker
status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg, b, err := setup(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		logger := log.WithComponent("coordinator")

		ix := index.New()
		if err := ix.Load(cfg.IndexStoragePath); err != nil {
			// A corrupt snapshot must not keep the service down.
			logger.Warn().Err(err).
				Str("path", cfg.IndexStoragePath).
				Msg("could not load index snapshot, starting empty")
		} else {
			logger.Info().
				Str("path", cfg.IndexStoragePath).
				Int("terms", ix.TermCount()).
				Msg("index snapshot loaded")
		}

		pending := index.NewPendingSet()
		dispatcher := dispatch.NewDispatcher(b, pending)
		queryEngine := index.NewQueryEngine(ix, cfg.Language)
		aggregator := status.NewAggregator(b)

		mrg := merger.New(b, ix, pending)
		mergerDone := make(chan struct{})
		go func() {
			defer close(mergerDone)
			mrg.Run(ctx)
		}()

		server := api.NewServer(api.Config{
			Dispatcher:  dispatcher,
			Query:       queryEngine,
			Index:       ix,
			Pending:     pending,
			Workers:     aggregator,
			UploadsPath: cfg.UploadsPath,
			IndexPath:   cfg.IndexStoragePath,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(fmt.Sprintf(":%d", cfg.CoordinatorPort))
		}()
		logger.Info().
			Int("port", cfg.CoordinatorPort).
			Str("language", string(cfg.Language)).
			Str("uploads_path", cfg.UploadsPath).
			Msg("coordinator is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutdown signal received")
		case err := <-errCh:
			if err != nil {
				cancel()
				<-mergerDone
				return fmt.Errorf("HTTP server: %w", err)
			}
		}

		// Stop accepting requests, then the merger, then persist.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown did not complete cleanly")
		}
		cancel()
		<-mergerDone

		if err := ix.Save(cfg.IndexStoragePath); err != nil {
			logger.Error().Err(err).
				Str("path", cfg.IndexStoragePath).
				Msg("could not save index snapshot on shutdown")
		} else {
			logger.Info().Str("path", cfg.IndexStoragePath).Msg("index snapshot saved")
		}

		logger.Info().Msg("coordinator shutdown complete")
		return nil
	},
}
