// Package metrics defines the Prometheus instrumentation for the
// indexing pipeline: dispatch and merge counters on the coordinator,
// processing counters on the workers, and gauges mirroring the index and
// pending-set sizes. The coordinator exposes them at /metrics.
package metrics
