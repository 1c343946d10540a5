package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run an indexing worker",
	Long: `Run a worker: register an identity, drain the worker's own task queue,
publish per-document term frequencies, and report heartbeats until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg, b, err := setup(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		w, err := worker.New(worker.Config{
			IDPrefix:          cfg.WorkerIDPrefix,
			Language:          cfg.Language,
			HeartbeatInterval: cfg.HeartbeatInterval,
			Broker:            b,
		})
		if err != nil {
			return err
		}
		log.Logger.Info().Str("worker_id", w.ID()).Msg("worker initialized")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			log.Logger.Info().Msg("shutdown signal received")
			cancel()
		}()

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
