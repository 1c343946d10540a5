package status

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/types"
)

const testTTL = 6 * time.Second

func newTestAggregator(t *testing.T) (*Aggregator, *broker.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := broker.New(mr.Addr())
	t.Cleanup(func() { _ = b.Close() })
	return NewAggregator(b), b, mr
}

// TestListWorkersEmpty tests the no-fleet case
func TestListWorkersEmpty(t *testing.T) {
	a, _, _ := newTestAggregator(t)

	statuses, err := a.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

// TestListWorkersComposedView tests that heartbeat, TTL, and queue depth
// are joined per worker and sorted by id
func TestListWorkersComposedView(t *testing.T) {
	a, b, _ := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, b.SetHeartbeat(ctx, "worker-b", types.Heartbeat{CPUPercent: 20, RAMPercent: 30}, testTTL))
	require.NoError(t, b.SetHeartbeat(ctx, "worker-a", types.Heartbeat{CPUPercent: 5, RAMPercent: 10}, testTTL))
	_, err := b.EnqueueTask(ctx, "worker-b", types.DocumentTask{DocID: "a.txt", Content: "x"})
	require.NoError(t, err)

	statuses, err := a.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "worker-a", statuses[0].WorkerID)
	assert.Equal(t, 5.0, statuses[0].CPUPercent)
	assert.Equal(t, 10.0, statuses[0].RAMPercent)
	assert.Equal(t, int64(0), statuses[0].QueueLength)
	assert.Equal(t, int64(6), statuses[0].StatusTTLSeconds)

	assert.Equal(t, "worker-b", statuses[1].WorkerID)
	assert.Equal(t, int64(1), statuses[1].QueueLength)
}

// TestListWorkersExpiredOmitted tests that a worker whose heartbeat
// expired disappears from the view
func TestListWorkersExpiredOmitted(t *testing.T) {
	a, b, mr := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, b.SetHeartbeat(ctx, "worker-1", types.Heartbeat{}, testTTL))
	mr.FastForward(testTTL + time.Second)

	statuses, err := a.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

// TestListWorkersMalformedOmitted tests that a corrupt heartbeat value
// hides that worker without failing the whole listing
func TestListWorkersMalformedOmitted(t *testing.T) {
	a, b, mr := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(types.WorkerStatusKey("worker-bad"), "junk"))
	require.NoError(t, b.SetHeartbeat(ctx, "worker-good", types.Heartbeat{CPUPercent: 1}, testTTL))

	statuses, err := a.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "worker-good", statuses[0].WorkerID)
}

// TestListWorkersBrokerDown tests that broker failures surface instead of
// returning a partial view
func TestListWorkersBrokerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	b := broker.New(mr.Addr())
	t.Cleanup(func() { _ = b.Close() })
	a := NewAggregator(b)
	mr.Close()

	_, err := a.ListWorkers(context.Background())
	assert.ErrorIs(t, err, broker.ErrUnavailable)
}
