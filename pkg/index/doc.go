/*
Package index holds the coordinator's mutable state: the global inverted
index, its gzip-JSON snapshot persistence, the pending-document set, and
the query engine that reads it.

# Concurrency

The index is a readers-writers structure. The merger is the only writer;
HTTP search handlers are the readers. A single RWMutex guards the two-level
map, which keeps every merge atomic with respect to readers at whole-index
granularity (a stronger guarantee than the per-term requirement).

Save runs under the read lock and publishes snapshots with a
write-temp-then-rename sequence, so the snapshot file is always either the
previous or the new version. Load swaps the whole map under the write lock
in one step.
*/
package index
