package types

import "strings"

// Broker key and channel names. These are wire-level identifiers shared with
// other versions of the system; changing them breaks cross-version
// compatibility.
const (
	// TaskQueuePrefix is the list-key prefix for per-worker task queues.
	TaskQueuePrefix = "doc_processing_tasks"

	// ResultsChannel is the pub/sub channel workers publish partial
	// results on.
	ResultsChannel = "idx_partial_results"

	// WorkerStatusPrefix is the string-key prefix for worker heartbeats.
	WorkerStatusPrefix = "worker_status"
)

// TaskQueueKey returns the broker list key holding workerID's task queue.
func TaskQueueKey(workerID string) string {
	return TaskQueuePrefix + ":" + workerID
}

// WorkerStatusKey returns the heartbeat key for workerID.
func WorkerStatusKey(workerID string) string {
	return WorkerStatusPrefix + ":" + workerID
}

// WorkerStatusPattern matches every live heartbeat key.
func WorkerStatusPattern() string {
	return WorkerStatusPrefix + ":*"
}

// WorkerIDFromStatusKey extracts the worker id from a heartbeat key.
// Returns "" if the key does not carry the heartbeat prefix.
func WorkerIDFromStatusKey(key string) string {
	rest, ok := strings.CutPrefix(key, WorkerStatusPrefix+":")
	if !ok {
		return ""
	}
	return rest
}

// Language selects the normalization resources (stopwords and stemmer)
// used by both the coordinator and the workers.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageSpanish Language = "spanish"
)

// ParseLanguage maps a configured language name to a Language, falling
// back to English for unknown values.
func ParseLanguage(s string) Language {
	if Language(strings.ToLower(s)) == LanguageSpanish {
		return LanguageSpanish
	}
	return LanguageEnglish
}

// DocumentTask is a unit of work routed to exactly one worker's queue.
// It is created by the coordinator at indexing trigger time and never
// mutated afterwards.
type DocumentTask struct {
	DocID   string `json:"doc_id"`
	Content string `json:"content"`
}

// PartialIndexResult is a worker's answer for one document: the term
// frequencies it computed, keyed term -> {docID -> frequency}. The inner
// map always holds exactly one key, equal to DocID; the doubly-keyed shape
// is part of the wire format.
type PartialIndexResult struct {
	WorkerID string                    `json:"worker_id"`
	DocID    string                    `json:"doc_id"`
	Partial  map[string]map[string]int `json:"partial"`
}

// Heartbeat is the payload stored under a worker's status key. The key
// carries a TTL of three heartbeat intervals; presence of the key is the
// sole liveness signal.
type Heartbeat struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
}

// WorkerStatus is the composed per-worker view served by the status
// aggregator: the heartbeat joined with the key TTL and queue depth.
type WorkerStatus struct {
	WorkerID         string  `json:"worker_id"`
	CPUPercent       float64 `json:"cpu_percent"`
	RAMPercent       float64 `json:"ram_percent"`
	StatusTTLSeconds int64   `json:"status_ttl_seconds"`
	QueueLength      int64   `json:"queue_length"`
}

// DispatchReport summarizes one indexing trigger: which documents were
// handed to workers, which files failed locally and why, and how many
// dispatched documents are still awaiting partial results.
type DispatchReport struct {
	CampaignID           string
	SuccessfulDispatches []string
	FailedFiles          []FailedFile
	DocsPending          int
	FilesFound           int
}

// FailedFile records a per-file failure inside a dispatch report.
type FailedFile struct {
	Name   string
	Reason string
}
