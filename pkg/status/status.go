package status

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/types"
)

// Aggregator composes the per-worker operational view: heartbeat values
// joined with key TTL and task-queue depth.
type Aggregator struct {
	broker *broker.Client
	logger zerolog.Logger
}

// NewAggregator creates a status aggregator.
func NewAggregator(b *broker.Client) *Aggregator {
	return &Aggregator{
		broker: b,
		logger: log.WithComponent("status"),
	}
}

// ListWorkers enumerates live heartbeats and returns one composed record
// per worker, in lexicographic worker-id order. Workers whose records are
// missing or malformed are silently omitted; broker failures surface.
func (a *Aggregator) ListWorkers(ctx context.Context) ([]types.WorkerStatus, error) {
	workers, err := a.broker.LiveWorkers(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]types.WorkerStatus, 0, len(workers))
	for _, workerID := range workers {
		hb, err := a.broker.GetHeartbeat(ctx, workerID)
		if err != nil {
			if errors.Is(err, broker.ErrUnavailable) {
				return nil, err
			}
			a.logger.Debug().Err(err).Str("worker_id", workerID).
				Msg("omitting worker with malformed heartbeat")
			continue
		}
		if hb == nil {
			// Expired between enumeration and read.
			continue
		}
		ttl, err := a.broker.HeartbeatTTL(ctx, workerID)
		if err != nil {
			return nil, err
		}
		queueLen, err := a.broker.QueueLength(ctx, workerID)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, types.WorkerStatus{
			WorkerID:         workerID,
			CPUPercent:       hb.CPUPercent,
			RAMPercent:       hb.RAMPercent,
			StatusTTLSeconds: int64(ttl.Seconds()),
			QueueLength:      queueLen,
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].WorkerID < statuses[j].WorkerID
	})
	return statuses, nil
}
