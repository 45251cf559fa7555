package timetable

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"prayertimes.app/metrics"
	"prayertimes.app/models"
	"prayertimes.app/providers/cache"
)

// CachedSource decorates a Source with a TTL byte cache so per-second
// client ticks and per-minute matcher runs do not reread the document.
// Absent dates are not cached; a republished entry appears after the TTL.
type CachedSource struct {
	source  Source
	cache   cache.GenericCacheInterface
	ttl     time.Duration
	metrics *metrics.CacheMetrics
}

// NewCachedSource wraps a source with the given cache backend. cacheType
// labels the backend in metrics ("memory" or "redis").
func NewCachedSource(source Source, c cache.GenericCacheInterface, ttl time.Duration, cacheType string) *CachedSource {
	return &CachedSource{
		source:  source,
		cache:   c,
		ttl:     ttl,
		metrics: metrics.NewCacheMetrics(cacheType),
	}
}

// Day resolves a date key through the cache
func (s *CachedSource) Day(dateKey string) (*models.TimetableDay, error) {
	ctx := context.Background()
	key := "timetable:" + dateKey

	if data, found := s.cache.Get(ctx, key); found {
		var day models.TimetableDay
		if err := json.Unmarshal(data, &day); err == nil {
			s.metrics.RecordHit()
			return &day, nil
		}
		slog.Warn("Discarding corrupt timetable cache entry", "key", key)
	}
	s.metrics.RecordMiss()

	day, err := s.source.Day(dateKey)
	if err != nil {
		return nil, err
	}
	if day != nil {
		if data, err := json.Marshal(day); err == nil {
			s.cache.Set(ctx, key, data, s.ttl)
		}
	}
	return day, nil
}
