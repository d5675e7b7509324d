package report

import (
	"fmt"
	"time"
)

// Thresholds the scorer applies. The application layer reuses them when
// assembling the snapshot so counting and scoring agree on what "stale"
// means.
const (
	// MaxFetchAge is how old the newest completed fetch may be before the
	// pipeline counts as stale
	MaxFetchAge = 24 * time.Hour
	// FetchHistoryWindow is the rolling window success rates are computed
	// over
	FetchHistoryWindow = 7 * 24 * time.Hour
	// StaleItemAge is how long an item may go without a sync before it
	// counts as stale
	StaleItemAge = 48 * time.Hour
	// MaxPendingStock is how many unprocessed ingested records are
	// tolerated before the backlog penalizes the score
	MaxPendingStock = 50

	staleItemPctThreshold    = 10.0
	unsyncedItemPctThreshold = 20.0
	successRateWarn          = 90.0
	successRateCritical      = 70.0
)

// HealthStatus buckets the numeric score for dashboards
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
	HealthCritical  HealthStatus = "critical"
)

// StatusForScore maps a score to its bucket
func StatusForScore(score int) HealthStatus {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 60:
		return HealthFair
	case score >= 40:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// SourceFetchStatus is the per-source slice of the health report: what the
// last fetch against that source did
type SourceFetchStatus struct {
	Source        string     `json:"source"`
	Kind          string     `json:"kind,omitempty"`
	LastStatus    string     `json:"last_status,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	RecordCount   int        `json:"record_count"`
}

// HealthSnapshot is the scorer input, assembled by the application layer
// from fetch history, mirror backlog and inventory staleness counts. Zero
// values are valid: an empty system scores with the staleness penalty and
// nothing else.
type HealthSnapshot struct {
	Now                time.Time
	LastCompletedFetch *time.Time
	SuccessCount       int64
	FailureCount       int64
	PendingStock       int64
	StaleItems         int64
	UnsyncedItems      int64
	TotalItems         int64
	Sources            []SourceFetchStatus
}

func (s *HealthSnapshot) successRate() (float64, bool) {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0, false
	}
	return float64(s.SuccessCount) / float64(total) * 100, true
}

func (s *HealthSnapshot) staleItemPct() (float64, bool) {
	if s.TotalItems == 0 {
		return 0, false
	}
	return float64(s.StaleItems) / float64(s.TotalItems) * 100, true
}

func (s *HealthSnapshot) unsyncedItemPct() (float64, bool) {
	if s.TotalItems == 0 {
		return 0, false
	}
	return float64(s.UnsyncedItems) / float64(s.TotalItems) * 100, true
}

// HealthReport is the operator-facing health signal
type HealthReport struct {
	Score           int                 `json:"score"`
	Status          HealthStatus        `json:"status"`
	Warnings        []string            `json:"warnings"`
	Recommendations []string            `json:"recommendations"`
	Sources         []SourceFetchStatus `json:"sources"`
	EvaluatedAt     time.Time           `json:"evaluated_at"`
}

// healthCheck is one row of the scoring table. Keeping penalty, warning
// and recommendation in one row is what guarantees the score and the two
// lists stay consistent: a check either fires completely or not at all.
type healthCheck struct {
	applies        func(s *HealthSnapshot) bool
	penalty        int
	warning        func(s *HealthSnapshot) string
	recommendation string
}

var healthChecks = []healthCheck{
	{
		applies: func(s *HealthSnapshot) bool {
			return s.LastCompletedFetch == nil || s.Now.Sub(*s.LastCompletedFetch) > MaxFetchAge
		},
		penalty: 30,
		warning: func(s *HealthSnapshot) string {
			if s.LastCompletedFetch == nil {
				return "No fetch has ever completed"
			}
			return fmt.Sprintf("Newest completed fetch is %s old", s.Now.Sub(*s.LastCompletedFetch).Round(time.Hour))
		},
		recommendation: "Trigger a manual fetch and check the scheduler is running",
	},
	{
		applies: func(s *HealthSnapshot) bool {
			rate, ok := s.successRate()
			return ok && rate < successRateWarn
		},
		penalty: 20,
		warning: func(s *HealthSnapshot) string {
			rate, _ := s.successRate()
			return fmt.Sprintf("Fetch success rate over the last 7 days is %.0f%% (%d of %d)",
				rate, s.SuccessCount, s.SuccessCount+s.FailureCount)
		},
		recommendation: "Inspect recent failed fetch records for portal or login errors",
	},
	{
		applies: func(s *HealthSnapshot) bool {
			rate, ok := s.successRate()
			return ok && rate < successRateCritical
		},
		penalty: 20,
		warning: func(s *HealthSnapshot) string {
			rate, _ := s.successRate()
			return fmt.Sprintf("Fetch success rate is critically low at %.0f%%", rate)
		},
		recommendation: "Check portal availability and credentials before retrying",
	},
	{
		applies: func(s *HealthSnapshot) bool {
			pct, ok := s.staleItemPct()
			return ok && pct > staleItemPctThreshold
		},
		penalty: 15,
		warning: func(s *HealthSnapshot) string {
			pct, _ := s.staleItemPct()
			return fmt.Sprintf("%.0f%% of inventory items have not synced in over %s", pct, StaleItemAge)
		},
		recommendation: "Run an items fetch to refresh stock levels",
	},
	{
		applies: func(s *HealthSnapshot) bool {
			pct, ok := s.unsyncedItemPct()
			return ok && pct > unsyncedItemPctThreshold
		},
		penalty: 15,
		warning: func(s *HealthSnapshot) string {
			pct, _ := s.unsyncedItemPct()
			return fmt.Sprintf("%.0f%% of inventory items have never been synced", pct)
		},
		recommendation: "Review item mappings so scraped names resolve to inventory items",
	},
	{
		applies: func(s *HealthSnapshot) bool {
			return s.PendingStock > MaxPendingStock
		},
		penalty: 10,
		warning: func(s *HealthSnapshot) string {
			return fmt.Sprintf("%d ingested records are waiting for stock processing", s.PendingStock)
		},
		recommendation: "Run stock processing or inspect it for repeated failures",
	},
}

// Score evaluates the snapshot against the fixed check table. The score
// starts at 100, each firing check subtracts its penalty and contributes
// one warning and one recommendation, and the result is floored at 0.
func Score(snap *HealthSnapshot) *HealthReport {
	report := &HealthReport{
		Score:           100,
		Warnings:        []string{},
		Recommendations: []string{},
		Sources:         snap.Sources,
		EvaluatedAt:     snap.Now,
	}
	for i := range healthChecks {
		check := &healthChecks[i]
		if !check.applies(snap) {
			continue
		}
		report.Score -= check.penalty
		report.Warnings = append(report.Warnings, check.warning(snap))
		report.Recommendations = append(report.Recommendations, check.recommendation)
	}
	if report.Score < 0 {
		report.Score = 0
	}
	report.Status = StatusForScore(report.Score)
	return report
}
