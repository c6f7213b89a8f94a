package models

// Aggregation periods selectable on the stats page.
const (
	PeriodToday = "today"
	Period7d    = "7d"
	Period30d   = "30d"
)

// ServerPeriod maps a console period to the value the stats endpoints
// expect. Unknown periods fall back to the widest window.
func ServerPeriod(period string) string {
	switch period {
	case PeriodToday:
		return "today"
	case Period7d:
		return "week"
	case Period30d:
		return "month"
	default:
		return "month"
	}
}

// ValidPeriod reports whether p is one of the known console periods.
func ValidPeriod(p string) bool {
	switch p {
	case PeriodToday, Period7d, Period30d:
		return true
	}
	return false
}

// SummaryStats is the headline block of a stats snapshot.
type SummaryStats struct {
	Checked          int     `json:"checked"`
	ApprovedPercent  float64 `json:"approvedPercent"`
	RejectedPercent  float64 `json:"rejectedPercent"`
	AvgReviewMinutes float64 `json:"avgReviewMinutes"`
}

// ActivityPoint is one labeled bucket of the activity chart.
type ActivityPoint struct {
	DayLabel string `json:"dayLabel"`
	Value    int    `json:"value"`
}

// DecisionsDistribution holds the decision counts for the selected period.
type DecisionsDistribution struct {
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	NeedsChanges int `json:"needsChanges"`
}

// Weights returns the fractional stacked-bar weight of each decision
// category: count divided by the sum of all three. The sum falls back to 1
// when every count is zero so an empty period renders as zero-width
// segments instead of NaN. These are raw fractions for flex layout, not the
// rounded integer percentages produced by stats.NormalizeToPercent.
func (d DecisionsDistribution) Weights() (approved, rejected, needsChanges float64) {
	sum := float64(d.Approved + d.Rejected + d.NeedsChanges)
	if sum == 0 {
		sum = 1
	}
	return float64(d.Approved) / sum, float64(d.Rejected) / sum, float64(d.NeedsChanges) / sum
}

// CategoryStat is one row of the per-category breakdown.
type CategoryStat struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// StatsSnapshot is the fully assembled, read-only view behind the stats
// page for one period. It is refetched whenever the period changes.
type StatsSnapshot struct {
	Summary    SummaryStats          `json:"summary"`
	Activity   []ActivityPoint       `json:"activity"`
	Decisions  DecisionsDistribution `json:"decisions"`
	Categories []CategoryStat        `json:"categories"`
}
