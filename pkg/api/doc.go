/*
Package api hosts the coordinator's HTTP/JSON surface.

Endpoints:

	POST /trigger-local-indexing/   scan a directory and dispatch .txt files
	POST /search/                   single-term keyword search
	GET  /index-status/             index size and pending-document counts
	POST /index/save/               snapshot the index to disk
	POST /index/load/               replace the index from the snapshot
	GET  /healthz                   liveness probe
	GET  /workers/status/           live worker fleet view
	GET  /metrics                   Prometheus scrape endpoint

Failures return {"detail": ...} with 4xx for caller faults and 503 for
transient infrastructure problems (broker unreachable, no live workers).
*/
package api
