// Package broker wraps the Redis substrate behind the small set of typed
// operations the pipeline needs: per-worker task queues with blocking
// pops, the fan-in results channel, and TTL-bearing heartbeat keys.
//
// All JSON encoding and decoding of broker payloads happens here; the
// rest of the system deals only in pkg/types values.
package broker
