package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ferret-index/ferret/pkg/log"
	"github.com/ferret-index/ferret/pkg/types"
)

// ErrUnavailable wraps any broker communication failure. HTTP handlers map
// it to 503.
var ErrUnavailable = errors.New("broker unavailable")

// Client is the typed wrapper over the Redis substrate. It is the only
// place broker payloads are serialized or deserialized.
type Client struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// New creates a broker client for the given endpoint. The connection is
// established lazily; call Ping to verify reachability.
func New(addr string) *Client {
	return &Client{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		logger: log.WithComponent("broker"),
	}
}

// Ping verifies the broker is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// EnqueueTask appends task to workerID's queue and returns the queue
// length after the push. Pushes to a single queue are totally ordered.
func (c *Client) EnqueueTask(ctx context.Context, workerID string, task types.DocumentTask) (int64, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return 0, fmt.Errorf("encode task %s: %w", task.DocID, err)
	}
	length, err := c.rdb.RPush(ctx, types.TaskQueueKey(workerID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: enqueue to %s: %v", ErrUnavailable, workerID, err)
	}
	return length, nil
}

// BlockingDequeue pops the oldest task from workerID's queue, waiting up
// to timeout. A nil task with nil error means the wait timed out.
func (c *Client) BlockingDequeue(ctx context.Context, workerID string, timeout time.Duration) (*types.DocumentTask, error) {
	reply, err := c.rdb.BLPop(ctx, timeout, types.TaskQueueKey(workerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dequeue for %s: %v", ErrUnavailable, workerID, err)
	}
	// BLPOP replies [key, value].
	if len(reply) != 2 {
		return nil, fmt.Errorf("dequeue for %s: unexpected reply length %d", workerID, len(reply))
	}
	var task types.DocumentTask
	if err := json.Unmarshal([]byte(reply[1]), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// QueueLength returns the depth of workerID's task queue.
func (c *Client) QueueLength(ctx context.Context, workerID string) (int64, error) {
	length, err := c.rdb.LLen(ctx, types.TaskQueueKey(workerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: queue length for %s: %v", ErrUnavailable, workerID, err)
	}
	return length, nil
}

// PublishResult publishes a partial index result on the results channel.
func (c *Client) PublishResult(ctx context.Context, result types.PartialIndexResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", result.DocID, err)
	}
	if err := c.rdb.Publish(ctx, types.ResultsChannel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish result for %s: %v", ErrUnavailable, result.DocID, err)
	}
	return nil
}

// ResultStream delivers decoded partial index results from the results
// channel. Malformed payloads are logged and dropped; the stream never
// fails on a bad record.
type ResultStream struct {
	pubsub  *redis.PubSub
	results chan types.PartialIndexResult
}

// Results returns the channel of decoded results. It is closed when the
// subscription context is cancelled or the stream is closed.
func (s *ResultStream) Results() <-chan types.PartialIndexResult {
	return s.results
}

// Close tears down the subscription.
func (s *ResultStream) Close() error {
	return s.pubsub.Close()
}

// SubscribeResults subscribes to the results channel and starts decoding
// messages until ctx is cancelled.
func (c *Client) SubscribeResults(ctx context.Context) (*ResultStream, error) {
	pubsub := c.rdb.Subscribe(ctx, types.ResultsChannel)
	// Force the SUBSCRIBE exchange so a dead broker surfaces here rather
	// than as a silent empty stream.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, types.ResultsChannel, err)
	}

	stream := &ResultStream{
		pubsub:  pubsub,
		results: make(chan types.PartialIndexResult),
	}
	go func() {
		defer close(stream.results)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var result types.PartialIndexResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					c.logger.Error().Err(err).
						Str("channel", msg.Channel).
						Msg("dropping undecodable result payload")
					continue
				}
				select {
				case stream.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return stream, nil
}

// SetHeartbeat writes workerID's status key with the given TTL. The write
// is a single atomic SET, so readers never observe a partial value.
func (c *Client) SetHeartbeat(ctx context.Context, workerID string, hb types.Heartbeat, ttl time.Duration) error {
	payload, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("encode heartbeat for %s: %w", workerID, err)
	}
	if err := c.rdb.Set(ctx, types.WorkerStatusKey(workerID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: heartbeat for %s: %v", ErrUnavailable, workerID, err)
	}
	return nil
}

// GetHeartbeat reads workerID's status key. A missing key (expired
// heartbeat) yields (nil, nil); a malformed value yields an error.
func (c *Client) GetHeartbeat(ctx context.Context, workerID string) (*types.Heartbeat, error) {
	payload, err := c.rdb.Get(ctx, types.WorkerStatusKey(workerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: heartbeat for %s: %v", ErrUnavailable, workerID, err)
	}
	var hb types.Heartbeat
	if err := json.Unmarshal([]byte(payload), &hb); err != nil {
		return nil, fmt.Errorf("decode heartbeat for %s: %w", workerID, err)
	}
	return &hb, nil
}

// HeartbeatTTL returns the remaining TTL of workerID's status key, or a
// negative duration if the key is missing or has no expiry.
func (c *Client) HeartbeatTTL(ctx context.Context, workerID string) (time.Duration, error) {
	ttl, err := c.rdb.TTL(ctx, types.WorkerStatusKey(workerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: heartbeat TTL for %s: %v", ErrUnavailable, workerID, err)
	}
	return ttl, nil
}

// LiveWorkers enumerates the worker ids with a present heartbeat key.
func (c *Client) LiveWorkers(ctx context.Context) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, types.WorkerStatusPattern()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate heartbeats: %v", ErrUnavailable, err)
	}
	workers := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := types.WorkerIDFromStatusKey(key); id != "" {
			workers = append(workers, id)
		}
	}
	return workers, nil
}
