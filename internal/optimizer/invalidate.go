package optimizer

import (
	"strings"

	"github.com/sdko-org/content-query/internal/batcher"
	"github.com/sdko-org/content-query/internal/metrics"
	"github.com/sirupsen/logrus"
)

// TagAll clears the whole result cache.
const TagAll = "all"

// invalidationPatterns maps an entity-type tag to the cache-key substrings
// it drops. Keys are matched by containment, so a tag drops every cached page
// of the listed entities regardless of filter, page or language.
var invalidationPatterns = map[string][]string{
	"blog":        {batcher.EntityBlogs},
	"program":     {batcher.EntityPrograms},
	"author":      {batcher.EntityBlogs},
	"image":       {batcher.EntityBlogs, batcher.EntityPrograms},
	"translation": {batcher.EntityBlogs, batcher.EntityPrograms},
	"gallery":     {batcher.EntityPrograms},
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if _, ok := invalidationPatterns[tag]; ok || tag == TagAll {
		return tag
	}
	return strings.TrimSuffix(tag, "s")
}

// InvalidateRelatedCache drops cached pages affected by a write to an entity
// of the given type and returns the number of keys removed. entityID is only
// logged; invalidation is per type. Unknown tags remove nothing.
func (s *Service) InvalidateRelatedCache(entityType, entityID string) (removed int) {
	tag := normalizeTag(entityType)
	log := s.log.WithFields(logrus.Fields{
		"entity_type": entityType,
		"entity_id":   entityID,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("Cache invalidation failed")
			removed = 0
		}
	}()

	if tag == TagAll {
		removed = s.cache.Len()
		s.cache.Clear()
	} else {
		patterns, ok := invalidationPatterns[tag]
		if !ok {
			log.Warn("Unknown entity type for cache invalidation")
			return 0
		}
		removed = s.cache.DeleteMatching(patterns...)
	}

	metrics.CacheInvalidations.WithLabelValues(tag).Add(float64(removed))
	log.WithField("removed", removed).Info("Invalidated cached queries")
	return removed
}
