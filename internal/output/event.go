package output

import "time"

const (
	EventRunStarted   = "run.started"
	EventRepoSkipped  = "repo.skipped"
	EventRepoAccepted = "repo.accepted"
	EventRepoRejected = "repo.rejected"
	EventRepoErrored  = "repo.errored"
	EventBatchFlushed = "batch.flushed"
	EventRunFinished  = "run.finished"
)

// Event is one crawl decision or lifecycle record. NDJSON sinks write one
// Event per line.
type Event struct {
	Type  string    `json:"type"`
	RunID string    `json:"run_id,omitempty"`
	Time  time.Time `json:"time"`

	Repo   string   `json:"repo,omitempty"`
	Query  string   `json:"query,omitempty"`
	Rule   string   `json:"rule,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Tools  []string `json:"tools,omitempty"`
	Error  string   `json:"error,omitempty"`

	Records  int `json:"records,omitempty"`
	Analyzed int `json:"analyzed,omitempty"`
	Saved    int `json:"saved,omitempty"`
	Skipped  int `json:"skipped,omitempty"`
	Errored  int `json:"errored,omitempty"`
}
