package model

import "time"

// RunStatus is the lifecycle state of an ingest run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// IngestRun is a persisted record of one pipeline invocation.
type IngestRun struct {
	ID          string    `json:"id"`
	Status      RunStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Fetched     int       `json:"fetched"`
	Processed   int       `json:"processed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Categorized int       `json:"categorized"`
	Deferred    int       `json:"deferred"`
}

// Failure captures one email that could not be processed. The run carries on
// past failures; they are reported, not fatal.
type Failure struct {
	EmailID string `json:"email_id"`
	Subject string `json:"subject,omitempty"`
	Err     string `json:"error"`
}

// RunReport summarizes a pipeline run.
// Fetched = Processed + Skipped + Failed + Deferred always holds; a deferred
// email had its contact persisted but is left unmarked so the next run can
// retry its classification.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Fetched     int           `json:"fetched"`
	Processed   int           `json:"processed"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Categorized int           `json:"categorized"`
	Deferred    int           `json:"deferred"`
	Failures    []Failure     `json:"failures,omitempty"`
	Duration    time.Duration `json:"duration"`
}
