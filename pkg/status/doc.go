// Package status builds the worker fleet view served at
// /workers/status/: every live heartbeat joined with its remaining TTL
// and queue depth, ordered by worker id.
package status
