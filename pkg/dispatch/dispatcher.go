package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/index"
	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/types"
)

// ErrNoWorkersAvailable means no live worker heartbeat was found; nothing
// can be dispatched. The coordinator does not queue tasks for later.
var ErrNoWorkersAvailable = errors.New("no workers available")

// Composite load score weights. One queued task outweighs a 10-point CPU
// difference, which keeps tasks from piling onto a single fast worker.
const (
	queueWeight = 10.0
	cpuWeight   = 0.5
	ramWeight   = 0.3
)

// Dispatcher routes document tasks to the least-loaded live worker.
type Dispatcher struct {
	broker  *broker.Client
	pending *index.PendingSet
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher recording dispatched documents in
// pending.
func NewDispatcher(b *broker.Client, pending *index.PendingSet) *Dispatcher {
	return &Dispatcher{
		broker:  b,
		pending: pending,
		logger:  log.WithComponent("dispatch"),
	}
}

// candidate is one live worker with its computed load score.
type candidate struct {
	workerID string
	score    float64
}

// selectWorker picks the live worker with the minimum composite score
//
//	queueLength*10 + cpu*0.5 + ram*0.3
//
// with ties broken by lexicographic worker id for determinism.
func (d *Dispatcher) selectWorker(ctx context.Context) (string, error) {
	workers, err := d.broker.LiveWorkers(ctx)
	if err != nil {
		return "", err
	}
	if len(workers) == 0 {
		return "", ErrNoWorkersAvailable
	}

	var best *candidate
	for _, workerID := range workers {
		hb, err := d.broker.GetHeartbeat(ctx, workerID)
		if err != nil {
			if errors.Is(err, broker.ErrUnavailable) {
				return "", err
			}
			d.logger.Warn().Err(err).Str("worker_id", workerID).
				Msg("skipping worker with malformed heartbeat")
			continue
		}
		if hb == nil {
			// Key expired between enumeration and read.
			continue
		}
		queueLen, err := d.broker.QueueLength(ctx, workerID)
		if err != nil {
			return "", err
		}

		c := candidate{
			workerID: workerID,
			score:    float64(queueLen)*queueWeight + hb.CPUPercent*cpuWeight + hb.RAMPercent*ramWeight,
		}
		d.logger.Debug().
			Str("worker_id", c.workerID).
			Int64("queue_length", queueLen).
			Float64("cpu_percent", hb.CPUPercent).
			Float64("ram_percent", hb.RAMPercent).
			Float64("score", c.score).
			Msg("dispatch candidate")

		if best == nil ||
			c.score < best.score ||
			(c.score == best.score && c.workerID < best.workerID) {
			best = &c
		}
	}
	if best == nil {
		return "", ErrNoWorkersAvailable
	}
	return best.workerID, nil
}

// Dispatch routes task to the least-loaded live worker and records its
// docID as pending. Selection is per task; there is no sticky assignment.
func (d *Dispatcher) Dispatch(ctx context.Context, task types.DocumentTask) (string, error) {
	workerID, err := d.selectWorker(ctx)
	if err != nil {
		return "", err
	}
	queueLen, err := d.broker.EnqueueTask(ctx, workerID, task)
	if err != nil {
		return "", fmt.Errorf("dispatch %s: %w", task.DocID, err)
	}
	d.pending.Add(task.DocID)
	d.logger.Info().
		Str("doc_id", task.DocID).
		Str("worker_id", workerID).
		Int64("queue_length", queueLen).
		Msg("dispatched document task")
	return workerID, nil
}

// HasLiveWorkers reports whether at least one worker heartbeat is present.
func (d *Dispatcher) HasLiveWorkers(ctx context.Context) (bool, error) {
	workers, err := d.broker.LiveWorkers(ctx)
	if err != nil {
		return false, err
	}
	return len(workers) > 0, nil
}
