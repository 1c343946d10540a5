package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/config"
	"github.com/ferret-index/ferret/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ferret",
	Short: "Ferret - distributed inverted-index builder and search service",
	Long: `Ferret builds a keyword-searchable inverted index over plain-text
documents by fanning tokenization work out to a pool of workers through a
Redis broker and merging their partial results on a central coordinator.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Ferret version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(coordinatorCmd)
	rootCmd.AddCommand(workerCmd)
}

// setup loads configuration, initializes logging, and connects to the
// broker, retrying with exponential backoff (capped at 30s) until it is
// reachable or ctx is cancelled. Neither process serves before then.
func setup(ctx context.Context) (*config.Config, *broker.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: true,
	})

	b := broker.New(cfg.RedisAddr())
	delay := 1 * time.Second
	const maxDelay = 30 * time.Second
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := b.Ping(pingCtx)
		cancel()
		if err == nil {
			log.Logger.Info().Str("addr", cfg.RedisAddr()).Msg("connected to broker")
			return cfg, b, nil
		}
		log.Logger.Warn().Err(err).
			Dur("retry_in", delay).
			Msg("broker not reachable yet")
		select {
		case <-ctx.Done():
			_ = b.Close()
			return nil, nil, fmt.Errorf("waiting for broker: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
}
