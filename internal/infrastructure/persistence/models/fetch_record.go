package models

import (
	"time"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
)

// FetchRecordModel is the persistence model for the FetchRecord aggregate.
// The results struct is flattened into results_* columns so history queries
// can aggregate counters without JSON extraction.
type FetchRecordModel struct {
	AggregateModel
	Source         string     `gorm:"type:varchar(30);not null;index:idx_fetch_records_source_time,priority:1"`
	FetchKind      string     `gorm:"type:varchar(20);not null"`
	Trigger        string     `gorm:"type:varchar(20);not null"`
	Status         string     `gorm:"type:varchar(20);not null;index"`
	StartedAt      time.Time  `gorm:"type:timestamptz;not null;index:idx_fetch_records_source_time,priority:2,sort:desc"`
	CompletedAt    *time.Time `gorm:"type:timestamptz"`
	DurationMs     int64      `gorm:"not null;default:0"`
	ResultsFetched int        `gorm:"not null;default:0"`
	ResultsCreated int        `gorm:"not null;default:0"`
	ResultsUpdated int        `gorm:"not null;default:0"`
	ResultsFailed  int        `gorm:"not null;default:0"`
	ResultsSkipped int        `gorm:"not null;default:0"`
	ErrorMessage   string     `gorm:"type:text"`
	Attempts       int        `gorm:"not null;default:0"`
	PagesFetched   int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (FetchRecordModel) TableName() string {
	return "fetch_records"
}

// ToDomain converts the persistence model to a domain FetchRecord
func (m *FetchRecordModel) ToDomain() *sync.FetchRecord {
	r := &sync.FetchRecord{
		BaseAggregateRoot: shared.BaseAggregateRoot{},
		Source:            sync.Source(m.Source),
		FetchKind:         sync.FetchKind(m.FetchKind),
		Trigger:           sync.FetchTrigger(m.Trigger),
		Status:            sync.FetchStatus(m.Status),
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		DurationMs:        m.DurationMs,
		Results: sync.FetchResults{
			Fetched: m.ResultsFetched,
			Created: m.ResultsCreated,
			Updated: m.ResultsUpdated,
			Failed:  m.ResultsFailed,
			Skipped: m.ResultsSkipped,
		},
		ErrorMessage: m.ErrorMessage,
		Attempts:     m.Attempts,
		PagesFetched: m.PagesFetched,
	}
	m.PopulateAggregateRoot(&r.BaseAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain FetchRecord
func (m *FetchRecordModel) FromDomain(r *sync.FetchRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Source = r.Source.String()
	m.FetchKind = r.FetchKind.String()
	m.Trigger = r.Trigger.String()
	m.Status = r.Status.String()
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
	m.DurationMs = r.DurationMs
	m.ResultsFetched = r.Results.Fetched
	m.ResultsCreated = r.Results.Created
	m.ResultsUpdated = r.Results.Updated
	m.ResultsFailed = r.Results.Failed
	m.ResultsSkipped = r.Results.Skipped
	m.ErrorMessage = r.ErrorMessage
	m.Attempts = r.Attempts
	m.PagesFetched = r.PagesFetched
}

// FetchRecordModelFromDomain creates a new persistence model from a domain FetchRecord
func FetchRecordModelFromDomain(r *sync.FetchRecord) *FetchRecordModel {
	m := &FetchRecordModel{}
	m.FromDomain(r)
	return m
}
