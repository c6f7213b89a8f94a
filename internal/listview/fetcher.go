package listview

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/openadmod/console/internal/cache"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
)

// Lister is the slice of the moderation client the fetcher needs.
type Lister interface {
	ListAds(ctx context.Context, q moderation.ListQuery) (*moderation.ListResponse, error)
}

// Fetcher retrieves queue pages, serving responses younger than the
// staleness window from cache. Responses are cached under the full query
// tuple, so a response that arrives after its query was superseded can only
// refresh its own key and never clobbers the current one.
type Fetcher struct {
	client  Lister
	cache   cache.Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewFetcher creates a list fetcher with the given staleness window.
func NewFetcher(client Lister, store cache.Store, ttl time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Fetcher {
	return &Fetcher{
		client:  client,
		cache:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch returns the page for q, from cache when fresh. On upstream failure
// the error carries moderation.ErrListAds and no cache state changes; the
// caller keeps whatever it was showing and may simply retry.
func (f *Fetcher) Fetch(ctx context.Context, q moderation.ListQuery) (*moderation.ListResponse, error) {
	key := "ads:" + q.Key()

	if payload, ok, err := f.cache.Get(ctx, key); err != nil {
		f.logger.Warn("list cache read", zap.Error(err))
	} else if ok {
		var resp moderation.ListResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			f.metrics.IncrementListCacheLookups("hit")
			return &resp, nil
		}
		f.logger.Warn("list cache entry corrupt, refetching", zap.String("key", key))
	}
	f.metrics.IncrementListCacheLookups("miss")

	resp, err := f.client.ListAds(ctx, q)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(resp); err != nil {
		f.logger.Warn("list cache encode", zap.Error(err))
	} else if err := f.cache.Set(ctx, key, payload, f.ttl); err != nil {
		// Cache failures degrade to refetching, they never fail the request.
		f.logger.Warn("list cache write", zap.Error(err))
	}

	return resp, nil
}
