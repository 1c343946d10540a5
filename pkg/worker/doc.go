/*
Package worker implements the ferret worker: a single-process agent that
drains its own broker task queue, tokenizes documents, and reports load.

A worker runs two concurrent loops and nothing else:

  - task loop: blocking dequeue (1s timeout) on doc_processing_tasks:{id},
    normalize, count term frequencies, publish the partial result on the
    results channel. Publish failures drop the result; delivery is at most
    once.
  - heartbeat loop: every interval, sample process CPU and system RAM and
    write worker_status:{id} with a TTL of three intervals.

Workers share no mutable state between the loops and have no channel back
from the coordinator; stopping one is just cancelling its context and
letting the heartbeat key expire.
*/
package worker
