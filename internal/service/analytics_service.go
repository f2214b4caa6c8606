package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/cache"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
)

// DefaultPeriod is used when no analytics period is requested
const DefaultPeriod = "7d"

// AnalyticsService serves dashboard snapshots through a cache
type AnalyticsService struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger
}

// NewAnalyticsService creates a new analytics service. A nil store disables caching.
func NewAnalyticsService(store cache.Store, ttl time.Duration, log *logger.Logger) *AnalyticsService {
	if log == nil {
		log = logger.Global()
	}
	return &AnalyticsService{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log.WithComponent("analytics"),
	}
}

// Analytics returns the dashboard snapshot for period. The snapshot does not
// depend on the period, so a single cache entry serves every value.
func (s *AnalyticsService) Analytics(ctx context.Context, period string) (*models.AnalyticsData, error) {
	if period == "" {
		period = DefaultPeriod
	}
	data, err := cached(ctx, s, "analytics:snapshot", func() *models.AnalyticsData {
		return analyticsSnapshot(DefaultPeriod)
	})
	if err != nil {
		return nil, err
	}
	data.Period = period
	return data, nil
}

// AdminKPIs returns the operator KPI summary
func (s *AnalyticsService) AdminKPIs(ctx context.Context) (*models.AdminKPIs, error) {
	return cached(ctx, s, "admin:kpis", adminKPIs)
}

// AdminCharts returns the operator chart series for the week ending today
func (s *AnalyticsService) AdminCharts(ctx context.Context) (*models.AdminCharts, error) {
	now := s.now()
	return cached(ctx, s, "admin:charts:"+now.Format("2006-01-02"), func() *models.AdminCharts {
		return adminCharts(now)
	})
}

// cached reads key from the store, building and storing the value on a miss.
// Store failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, build func() *T) (*T, error) {
	if s.store == nil {
		return build(), nil
	}
	log := s.log.WithContext(ctx)

	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		log.Warn("Discarding undecodable cache entry", "key", key)
	case !errors.Is(err, cache.ErrMiss):
		log.Warn("Cache read failed", "key", key, "error", err.Error())
	}

	v := build()
	raw, err = json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
		log.Warn("Cache write failed", "key", key, "error", err.Error())
	}
	return v, nil
}
