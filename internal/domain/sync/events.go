package sync

import (
	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeFetchRecord = "FetchRecord"

// Event type constants
const (
	EventTypeFetchCompleted = "FetchCompleted"
	EventTypeFetchFailed    = "FetchFailed"
)

// FetchCompletedEvent is published when a fetch finishes successfully
type FetchCompletedEvent struct {
	shared.BaseDomainEvent
	FetchRecordID uuid.UUID    `json:"fetch_record_id"`
	Source        Source       `json:"source"`
	FetchKind     FetchKind    `json:"fetch_kind"`
	Results       FetchResults `json:"results"`
	DurationMs    int64        `json:"duration_ms"`
	PagesFetched  int          `json:"pages_fetched"`
}

// NewFetchCompletedEvent creates a new FetchCompletedEvent
func NewFetchCompletedEvent(record *FetchRecord) *FetchCompletedEvent {
	return &FetchCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFetchCompleted, AggregateTypeFetchRecord, record.ID),
		FetchRecordID:   record.ID,
		Source:          record.Source,
		FetchKind:       record.FetchKind,
		Results:         record.Results,
		DurationMs:      record.DurationMs,
		PagesFetched:    record.PagesFetched,
	}
}

// FetchFailedEvent is published when a fetch exhausts its retries and fails
type FetchFailedEvent struct {
	shared.BaseDomainEvent
	FetchRecordID uuid.UUID `json:"fetch_record_id"`
	Source        Source    `json:"source"`
	FetchKind     FetchKind `json:"fetch_kind"`
	ErrorMessage  string    `json:"error_message"`
	Attempts      int       `json:"attempts"`
}

// NewFetchFailedEvent creates a new FetchFailedEvent
func NewFetchFailedEvent(record *FetchRecord) *FetchFailedEvent {
	return &FetchFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFetchFailed, AggregateTypeFetchRecord, record.ID),
		FetchRecordID:   record.ID,
		Source:          record.Source,
		FetchKind:       record.FetchKind,
		ErrorMessage:    record.ErrorMessage,
		Attempts:        record.Attempts,
	}
}
