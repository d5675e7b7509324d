package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Fetch Status
// ---------------------------------------------------------------------------

// FetchStatus represents the lifecycle state of a fetch attempt
type FetchStatus string

const (
	FetchStatusInProgress FetchStatus = "in_progress"
	FetchStatusCompleted  FetchStatus = "completed"
	FetchStatusFailed     FetchStatus = "failed"
	FetchStatusCancelled  FetchStatus = "cancelled"
)

// IsValid checks if the status is a valid FetchStatus
func (s FetchStatus) IsValid() bool {
	switch s {
	case FetchStatusInProgress, FetchStatusCompleted, FetchStatusFailed, FetchStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of FetchStatus
func (s FetchStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is final
func (s FetchStatus) IsTerminal() bool {
	return s == FetchStatusCompleted || s == FetchStatusFailed || s == FetchStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions are monotonic: in_progress moves to exactly one terminal
// status and terminal statuses never move again.
func (s FetchStatus) CanTransitionTo(target FetchStatus) bool {
	if s != FetchStatusInProgress {
		return false
	}
	return target.IsTerminal()
}

// ---------------------------------------------------------------------------
// FetchRecord Aggregate
// ---------------------------------------------------------------------------

// FetchResults counts what one fetch did to the mirror store.
type FetchResults struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Add accumulates another page's results.
func (r *FetchResults) Add(other FetchResults) {
	r.Fetched += other.Fetched
	r.Created += other.Created
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

// FetchRecord is the history row for one fetch attempt against an external
// source. Exactly one record exists per fetch, created before any portal
// work begins and finalized exactly once when the fetch ends. Records are
// retained for a rolling window only; readers must tolerate purged history.
type FetchRecord struct {
	shared.BaseAggregateRoot
	Source       Source
	FetchKind    FetchKind
	Trigger      FetchTrigger
	Status       FetchStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	DurationMs   int64
	Results      FetchResults
	ErrorMessage string
	Attempts     int
	PagesFetched int
}

// NewFetchRecord opens an in-progress record for a fetch that is about to run.
func NewFetchRecord(source Source, kind FetchKind, trigger FetchTrigger) (*FetchRecord, error) {
	if !source.IsValid() {
		return nil, ErrUnknownSource
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_FETCH_KIND", "Unknown fetch kind")
	}
	if !trigger.IsValid() {
		trigger = TriggerManual
	}

	r := &FetchRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Source:            source,
		FetchKind:         kind,
		Trigger:           trigger,
		Status:            FetchStatusInProgress,
		StartedAt:         time.Now(),
		Attempts:          0,
	}
	return r, nil
}

// RecordAttempt counts one whole-fetch attempt (first run and each retry).
func (r *FetchRecord) RecordAttempt() {
	r.Attempts++
	r.UpdatedAt = time.Now()
}

// Complete finalizes the record as successful. Finalizing twice is an error.
func (r *FetchRecord) Complete(results FetchResults, pages int) error {
	if err := r.finalize(FetchStatusCompleted); err != nil {
		return err
	}
	r.Results = results
	r.PagesFetched = pages
	r.AddDomainEvent(NewFetchCompletedEvent(r))
	return nil
}

// Fail finalizes the record as failed with the terminal error message.
func (r *FetchRecord) Fail(errMsg string) error {
	if err := r.finalize(FetchStatusFailed); err != nil {
		return err
	}
	r.ErrorMessage = errMsg
	r.AddDomainEvent(NewFetchFailedEvent(r))
	return nil
}

// Cancel finalizes the record as cancelled (operator abort before work ran).
func (r *FetchRecord) Cancel(reason string) error {
	if err := r.finalize(FetchStatusCancelled); err != nil {
		return err
	}
	r.ErrorMessage = reason
	return nil
}

func (r *FetchRecord) finalize(target FetchStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return ErrFetchRecordFinalized
	}
	now := time.Now()
	r.Status = target
	r.CompletedAt = &now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// IsExpired reports whether the record has aged past the retention window
// and should be purged.
func (r *FetchRecord) IsExpired(retention time.Duration, now time.Time) bool {
	return now.Sub(r.StartedAt) > retention
}

// Succeeded reports whether the fetch completed without a terminal error.
func (r *FetchRecord) Succeeded() bool {
	return r.Status == FetchStatusCompleted
}

// ---------------------------------------------------------------------------
// FetchRecordRepository Interface
// ---------------------------------------------------------------------------

// FetchRecordFilter defines filter criteria for fetch history queries
type FetchRecordFilter struct {
	// Source filters by external source (optional)
	Source *Source
	// FetchKind filters by record kind (optional)
	FetchKind *FetchKind
	// Status filters by lifecycle status (optional)
	Status *FetchStatus
	// Since filters records started at or after this time (optional)
	Since *time.Time
	// Limit caps the number of records returned, newest first
	Limit int
}

// FetchRecordRepository defines the interface for fetch history persistence
type FetchRecordRepository interface {
	// Save creates or updates a fetch record
	Save(ctx context.Context, record *FetchRecord) error

	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*FetchRecord, error)

	// FindAll finds records matching the filter, newest first
	FindAll(ctx context.Context, filter FetchRecordFilter) ([]FetchRecord, error)

	// FindLatestBySource returns the newest record per source
	FindLatestBySource(ctx context.Context) (map[Source]FetchRecord, error)

	// CountByStatusSince counts records per status started since the cutoff
	CountByStatusSince(ctx context.Context, since time.Time) (map[FetchStatus]int64, error)

	// DeleteOlderThan purges records started before the cutoff, returning
	// the number removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
