// Package merger implements the fan-in half of the pipeline: one
// subscription to the partial-results channel, started at coordinator
// boot, merging every worker answer into the global index and clearing
// the matching pending entry.
//
// Merging the same partial twice is safe; malformed records are logged
// and dropped without failing the subscription.
package merger
