package worker

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ferret-index/ferret/pkg/types"
)

// sampler reads the process CPU percentage and system RAM usage.
type sampler struct {
	proc *process.Process
}

func newSampler() (*sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	// Prime the CPU counter: Percent(0) measures since the previous
	// call, so the first reported value is 0.
	_, _ = proc.Percent(0)
	return &sampler{proc: proc}, nil
}

// sample returns the current heartbeat payload. Sampling errors degrade to
// zero values rather than skipping the heartbeat; key presence is the
// liveness signal and must not depend on platform counters.
func (s *sampler) sample() types.Heartbeat {
	var hb types.Heartbeat
	if cpu, err := s.proc.Percent(0); err == nil {
		hb.CPUPercent = cpu
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hb.RAMPercent = vm.UsedPercent
	}
	return hb
}

// heartbeatLoop writes the worker's status key every interval with a TTL
// of three intervals until ctx is cancelled. Losing the key is how this
// worker disappears from scheduling and status views.
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ttl := 3 * w.interval

	// First beat immediately so the dispatcher can route to a fresh
	// worker without waiting a full interval.
	w.beat(ctx, ttl)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat(ctx, ttl)
		}
	}
}

func (w *Worker) beat(ctx context.Context, ttl time.Duration) {
	hb := w.sampler.sample()
	if err := w.broker.SetHeartbeat(ctx, w.id, hb, ttl); err != nil {
		if ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("could not report heartbeat")
		}
		return
	}
	w.logger.Debug().
		Float64("cpu_percent", hb.CPUPercent).
		Float64("ram_percent", hb.RAMPercent).
		Msg("reported heartbeat")
}
