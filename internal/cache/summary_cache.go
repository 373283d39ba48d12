package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/grade"
)

// SummaryCachePrefix is the key prefix of cached course summaries.
const SummaryCachePrefix = "course-summary-"

// SummaryCache caches computed course summaries by course ID.
type SummaryCache struct {
	cache *PrefixedCache[grade.Summary]
	ttl   time.Duration
}

// NewSummaryCache creates a summary cache backed by the configured store.
func NewSummaryCache(cfg *config.CacheConfig) *SummaryCache {
	if cfg == nil {
		cfg = &config.CacheConfig{Type: config.CacheTypeMemory}
	}
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SummaryCache{
		cache: NewPrefixedCache[grade.Summary](newCacheInstanceByType(cfg), cfg.Type, SummaryCachePrefix),
		ttl:   ttl,
	}
}

// Get returns the cached summary of a course. Any cache error counts as a miss.
func (s *SummaryCache) Get(ctx context.Context, courseID uint) (grade.Summary, bool) {
	summary, err := s.cache.Get(ctx, courseID)
	if err != nil {
		return grade.Summary{}, false
	}
	return summary, true
}

// Set stores the summary of a course.
func (s *SummaryCache) Set(ctx context.Context, summary grade.Summary) {
	if err := s.cache.Set(ctx, summary.CourseID, summary, store.WithExpiration(s.ttl)); err != nil {
		log.Warn("failed to cache course summary", "course_id", summary.CourseID, "error", err)
	}
}

// Invalidate drops the cached summary of a course.
func (s *SummaryCache) Invalidate(ctx context.Context, courseID uint) {
	if err := s.cache.Delete(ctx, courseID); err != nil {
		log.Debug("failed to invalidate course summary", "course_id", courseID, "error", err)
	}
}

// Type returns the backing store type.
func (s *SummaryCache) Type() config.CacheType {
	return s.cache.GetType()
}
