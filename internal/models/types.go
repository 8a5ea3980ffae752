// Package models holds the data types shared by the cleanup pipeline and the ledger.
package models

import "time"

// Phase identifies which kind of instruction a batch carries.
type Phase string

const (
	PhaseBurn  Phase = "burn"
	PhaseClose Phase = "close"
)

// Outcome is the terminal state of a submitted batch.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
)

// SubmissionResult describes what happened to one batch transaction.
type SubmissionResult struct {
	Phase      Phase         `json:"phase"`
	BatchIndex int           `json:"batchIndex"`
	Signature  string        `json:"signature,omitempty"`
	BatchSize  int           `json:"batchSize"`
	Accounts   []string      `json:"accounts"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	ErrorCode  string        `json:"errorCode,omitempty"`
	Slot       uint64        `json:"slot,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Confirmed reports whether the batch reached confirmed commitment.
func (r SubmissionResult) Confirmed() bool {
	return r.Outcome == OutcomeConfirmed
}

// PhaseResult aggregates the batches of one phase.
type PhaseResult struct {
	Phase          Phase              `json:"phase"`
	AccountCount   int                `json:"accountCount"`
	BatchCount     int                `json:"batchCount"`
	ConfirmedCount int                `json:"confirmedCount"`
	FailedCount    int                `json:"failedCount"`
	Results        []SubmissionResult `json:"results"`
}

// Add appends a batch result and updates the counters.
func (p *PhaseResult) Add(r SubmissionResult) {
	p.Results = append(p.Results, r)
	p.BatchCount++
	if r.Confirmed() {
		p.ConfirmedCount++
	} else {
		p.FailedCount++
	}
}

// RunSummary is the outcome of a full cleanup run.
type RunSummary struct {
	RunID         string        `json:"runId"`
	Owner         string        `json:"owner"`
	TotalAccounts int           `json:"totalAccounts"`
	ExcludedCount int           `json:"excludedCount"`
	Burn          PhaseResult   `json:"burn"`
	Close         PhaseResult   `json:"close"`
	Duration      time.Duration `json:"duration"`
}

// BatchPlan describes a batch that would be submitted, used by dry runs.
type BatchPlan struct {
	Phase      Phase    `json:"phase"`
	BatchIndex int      `json:"batchIndex"`
	Accounts   []string `json:"accounts"`
}

// RunRecord is a run as stored in the ledger.
type RunRecord struct {
	ID             string `json:"id"`
	Owner          string `json:"owner"`
	BurnPlanned    int    `json:"burnPlanned"`
	ClosePlanned   int    `json:"closePlanned"`
	BurnConfirmed  int    `json:"burnConfirmed"`
	BurnFailed     int    `json:"burnFailed"`
	CloseConfirmed int    `json:"closeConfirmed"`
	CloseFailed    int    `json:"closeFailed"`
	StartedAt      string `json:"startedAt"`
	FinishedAt     string `json:"finishedAt,omitempty"`
}
