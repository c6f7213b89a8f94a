// Package stats assembles the dashboard's statistics snapshots from the
// upstream chart endpoints and provides the chart normalization helpers.
package stats

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openadmod/console/internal/cache"
	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
)

// NormalizeToPercent converts value into a rounded integer percentage of
// max, 0 when max is 0. Bar widths and heights derive from this; any
// minimum visual height is the renderer's concern, the raw ratio is
// returned untouched.
func NormalizeToPercent(value, max int) int {
	if max == 0 {
		return 0
	}
	return int(math.Round(float64(value) / float64(max) * 100))
}

// Source is the slice of the moderation client the service needs.
type Source interface {
	StatsSummary(ctx context.Context, period string) (*moderation.SummaryData, error)
	StatsActivity(ctx context.Context, period string) ([]moderation.ActivityData, error)
	StatsDecisions(ctx context.Context, period string) (*moderation.DecisionsData, error)
	StatsCategories(ctx context.Context, period string) (map[string]int, error)
}

// Service fetches and normalizes stats snapshots, one cached snapshot per
// period.
type Service struct {
	source Source
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a stats service with the given snapshot staleness
// window.
func NewService(source Source, store cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{source: source, cache: store, ttl: ttl, logger: logger}
}

// Snapshot returns the snapshot for a period, fresh from cache when
// possible. The four upstream endpoints are fetched concurrently; any
// failure fails the whole snapshot with the fixed stats error.
func (s *Service) Snapshot(ctx context.Context, period string) (*models.StatsSnapshot, error) {
	key := "stats:" + models.ServerPeriod(period)

	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("stats cache read", zap.Error(err))
	} else if ok {
		var snap models.StatsSnapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return &snap, nil
		}
	}

	var (
		wg         sync.WaitGroup
		summary    *moderation.SummaryData
		activity   []moderation.ActivityData
		decisions  *moderation.DecisionsData
		categories map[string]int
		errs       [4]error
	)

	wg.Add(4)
	go func() { defer wg.Done(); summary, errs[0] = s.source.StatsSummary(ctx, period) }()
	go func() { defer wg.Done(); activity, errs[1] = s.source.StatsActivity(ctx, period) }()
	go func() { defer wg.Done(); decisions, errs[2] = s.source.StatsDecisions(ctx, period) }()
	go func() { defer wg.Done(); categories, errs[3] = s.source.StatsCategories(ctx, period) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	snap := &models.StatsSnapshot{
		Summary:    toSummary(summary),
		Activity:   toActivity(activity),
		Decisions:  toDecisions(decisions),
		Categories: toCategories(categories),
	}

	if payload, err := json.Marshal(snap); err != nil {
		s.logger.Warn("stats cache encode", zap.Error(err))
	} else if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("stats cache write", zap.Error(err))
	}

	return snap, nil
}

func toSummary(api *moderation.SummaryData) models.SummaryStats {
	return models.SummaryStats{
		Checked:          api.TotalReviewed,
		ApprovedPercent:  api.ApprovedPercentage,
		RejectedPercent:  api.RejectedPercentage,
		AvgReviewMinutes: api.AverageReviewTime,
	}
}

// toActivity folds each raw bucket into one labeled point. The label is the
// bucket date as DD.MM; a date the console cannot parse is shown raw.
func toActivity(items []moderation.ActivityData) []models.ActivityPoint {
	points := make([]models.ActivityPoint, 0, len(items))
	for _, item := range items {
		label := item.Date
		if t, ok := parseBucketDate(item.Date); ok {
			label = t.Format("02.01")
		}
		points = append(points, models.ActivityPoint{
			DayLabel: label,
			Value:    item.Approved + item.Rejected + item.RequestChanges,
		})
	}
	return points
}

func parseBucketDate(v string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toDecisions(api *moderation.DecisionsData) models.DecisionsDistribution {
	return models.DecisionsDistribution{
		Approved:     api.Approved,
		Rejected:     api.Rejected,
		NeedsChanges: api.RequestChanges,
	}
}

// toCategories flattens the category map into rows ordered by descending
// count, ties alphabetical, so the breakdown renders deterministically.
func toCategories(api map[string]int) []models.CategoryStat {
	rows := make([]models.CategoryStat, 0, len(api))
	for category, value := range api {
		rows = append(rows, models.CategoryStat{Category: category, Value: value})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}
