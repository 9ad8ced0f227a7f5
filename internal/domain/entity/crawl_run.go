package entity

import "time"

// Crawl run outcomes
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
	RunStatusTimedOut  = "TIMED_OUT"
)

// CrawlRun is one scheduler-started invocation of the crawl
type CrawlRun struct {
	ID               uint       `json:"id"`
	RunID            string     `json:"runId"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	PairsTotal       int        `json:"pairsTotal"`
	PairsFailed      int        `json:"pairsFailed"`
	RecordsPersisted int        `json:"recordsPersisted"`
	ErrorDetail      string     `json:"errorDetail,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
