package merger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/index"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/metrics"
	"github.com/ferret-index/ferret/pkg/types"
)

// resubscribeDelay is how long the merger waits before re-establishing a
// lost subscription.
const resubscribeDelay = 5 * time.Second

// Merger owns the single subscription to the results channel and folds
// each partial index into the global index.
type Merger struct {
	broker  *broker.Client
	index   *index.Index
	pending *index.PendingSet
	logger  zerolog.Logger
}

// New creates a merger writing into ix and clearing pending entries.
func New(b *broker.Client, ix *index.Index, pending *index.PendingSet) *Merger {
	return &Merger{
		broker:  b,
		index:   ix,
		pending: pending,
		logger:  log.WithComponent("merger"),
	}
}

// Run subscribes to the results channel and merges incoming partials until
// ctx is cancelled. A lost subscription is re-established after a short
// delay; data-level errors never terminate the loop.
func (m *Merger) Run(ctx context.Context) {
	for ctx.Err() == nil {
		stream, err := m.broker.SubscribeResults(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error().Err(err).
				Dur("retry_in", resubscribeDelay).
				Msg("could not subscribe to results channel")
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
			continue
		}
		m.logger.Info().Str("channel", types.ResultsChannel).Msg("subscribed to partial results")

		m.consume(ctx, stream)
		_ = stream.Close()
	}
}

// consume drains one subscription until it ends or ctx is cancelled.
func (m *Merger) consume(ctx context.Context, stream *broker.ResultStream) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-stream.Results():
			if !ok {
				if ctx.Err() == nil {
					m.logger.Warn().Msg("results subscription ended, will resubscribe")
				}
				return
			}
			m.apply(result)
		}
	}
}

// apply merges one partial result and clears its pending entry.
func (m *Merger) apply(result types.PartialIndexResult) {
	m.logger.Info().
		Str("worker_id", result.WorkerID).
		Str("doc_id", result.DocID).
		Int("terms", len(result.Partial)).
		Msg("received partial index")

	m.index.Merge(result.DocID, result.Partial)
	metrics.PartialsMerged.Inc()
	metrics.IndexTerms.Set(float64(m.index.TermCount()))

	if m.pending.Remove(result.DocID) {
		m.logger.Debug().
			Str("doc_id", result.DocID).
			Int("still_pending", m.pending.Len()).
			Msg("document processing complete")
	} else {
		m.logger.Warn().
			Str("doc_id", result.DocID).
			Msg("received results for a document not in the pending set")
	}
	metrics.DocsPending.Set(float64(m.pending.Len()))
}
