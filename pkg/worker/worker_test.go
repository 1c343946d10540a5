package worker

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferret-index/ferret/pkg/broker"
	"github.com/ferret-index/ferret/pkg/types"
)

// TestComputeWorkerID tests worker identity derivation
func TestComputeWorkerID(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)

	got := ComputeWorkerID("worker")
	assert.Equal(t, fmt.Sprintf("worker-%s-%d", hostname, os.Getpid()), got)

	// Two calls in the same process agree, so the queue key and the
	// heartbeat key name the same worker.
	assert.Equal(t, got, ComputeWorkerID("worker"))
	assert.NotEqual(t, got, ComputeWorkerID("other"))
}

// TestNewValidation tests worker construction preconditions
func TestNewValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	b := broker.New(mr.Addr())
	t.Cleanup(func() { _ = b.Close() })

	_, err := New(Config{Broker: nil, HeartbeatInterval: time.Second})
	assert.Error(t, err)

	_, err = New(Config{Broker: b, HeartbeatInterval: 0})
	assert.Error(t, err)

	w, err := New(Config{IDPrefix: "worker", Broker: b, HeartbeatInterval: time.Second})
	require.NoError(t, err)
	assert.Equal(t, ComputeWorkerID("worker"), w.ID())
}

// TestShapePartial tests the doubly-keyed wire shape
func TestShapePartial(t *testing.T) {
	tests := []struct {
		name  string
		docID string
		freqs map[string]int
		want  map[string]map[string]int
	}{
		{
			name:  "multiple terms",
			docID: "a.txt",
			freqs: map[string]int{"cat": 3, "dog": 1},
			want: map[string]map[string]int{
				"cat": {"a.txt": 3},
				"dog": {"a.txt": 1},
			},
		},
		{
			name:  "no terms",
			docID: "blank.txt",
			freqs: map[string]int{},
			want:  map[string]map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shapePartial(tt.docID, tt.freqs)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, got)
		})
	}
}

// TestWorkerProcessesQueuedTask tests the full loop: a task on the worker's
// queue comes back as a published partial result, and heartbeats appear
// under the worker's status key
func TestWorkerProcessesQueuedTask(t *testing.T) {
	mr := miniredis.RunT(t)
	b := broker.New(mr.Addr())
	t.Cleanup(func() { _ = b.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(Config{
		IDPrefix:          "worker",
		Language:          types.LanguageEnglish,
		HeartbeatInterval: time.Second,
		Broker:            b,
	})
	require.NoError(t, err)

	// Subscribe before the worker starts so no result can slip past.
	stream, err := b.SubscribeResults(ctx)
	require.NoError(t, err)
	defer stream.Close()

	_, err = b.EnqueueTask(ctx, w.ID(), types.DocumentTask{
		DocID:   "a.txt",
		Content: "the cat saw a cat",
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	select {
	case result := <-stream.Results():
		assert.Equal(t, w.ID(), result.WorkerID)
		assert.Equal(t, "a.txt", result.DocID)
		assert.Equal(t, map[string]map[string]int{
			"cat": {"a.txt": 2},
			"saw": {"a.txt": 1},
		}, result.Partial)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the worker's partial result")
	}

	// The first heartbeat is written immediately on startup.
	hb, err := b.GetHeartbeat(ctx, w.ID())
	require.NoError(t, err)
	assert.NotNil(t, hb)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	// The queue is drained.
	length, err := b.QueueLength(context.Background(), w.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}

// TestWorkerPublishesEmptyPartial tests that a document normalizing to
// nothing still produces a (terms-free) result, so the coordinator can
// clear its pending entry
func TestWorkerPublishesEmptyPartial(t *testing.T) {
	mr := miniredis.RunT(t)
	b := broker.New(mr.Addr())
	t.Cleanup(func() { _ = b.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(Config{
		IDPrefix:          "worker",
		Language:          types.LanguageEnglish,
		HeartbeatInterval: time.Second,
		Broker:            b,
	})
	require.NoError(t, err)

	stream, err := b.SubscribeResults(ctx)
	require.NoError(t, err)
	defer stream.Close()

	_, err = b.EnqueueTask(ctx, w.ID(), types.DocumentTask{
		DocID:   "stopwords.txt",
		Content: "the and or but 42 ...",
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	select {
	case result := <-stream.Results():
		assert.Equal(t, "stopwords.txt", result.DocID)
		assert.Empty(t, result.Partial)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the empty partial result")
	}

	cancel()
	<-done
}

// TestSamplerDegradesToZero tests that sampling never fails outright
func TestSamplerDegradesToZero(t *testing.T) {
	smp, err := newSampler()
	require.NoError(t, err)

	hb := smp.sample()
	assert.GreaterOrEqual(t, hb.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, hb.RAMPercent, 0.0)
	assert.LessOrEqual(t, hb.RAMPercent, 100.0)
}
