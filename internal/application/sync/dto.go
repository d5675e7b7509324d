package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/sync"
)

// FetchRecordResponse represents a fetch record in API responses
type FetchRecordResponse struct {
	ID           uuid.UUID         `json:"id"`
	Source       string            `json:"source"`
	FetchKind    string            `json:"fetch_kind"`
	Trigger      string            `json:"trigger"`
	Status       string            `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Results      sync.FetchResults `json:"results"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Attempts     int               `json:"attempts"`
	PagesFetched int               `json:"pages_fetched"`
}

// ToFetchRecordResponse converts a FetchRecord to a FetchRecordResponse
func ToFetchRecordResponse(record *sync.FetchRecord) *FetchRecordResponse {
	if record == nil {
		return nil
	}
	return &FetchRecordResponse{
		ID:           record.ID,
		Source:       record.Source.String(),
		FetchKind:    record.FetchKind.String(),
		Trigger:      record.Trigger.String(),
		Status:       record.Status.String(),
		StartedAt:    record.StartedAt,
		CompletedAt:  record.CompletedAt,
		DurationMs:   record.DurationMs,
		Results:      record.Results,
		ErrorMessage: record.ErrorMessage,
		Attempts:     record.Attempts,
		PagesFetched: record.PagesFetched,
	}
}

// ToFetchRecordResponses converts a slice of FetchRecords to responses
func ToFetchRecordResponses(records []sync.FetchRecord) []FetchRecordResponse {
	responses := make([]FetchRecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, *ToFetchRecordResponse(&records[i]))
	}
	return responses
}
