// Package dispatch assigns document tasks to workers based on observed
// load and drives the local-indexing trigger.
//
// Worker selection is per task: the dispatcher enumerates live heartbeat
// keys, joins each with its queue depth, and picks the minimum composite
// score (queue length dominating CPU and RAM). A worker whose heartbeat
// key has expired is never selected.
package dispatch
