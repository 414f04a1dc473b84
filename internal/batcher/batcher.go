// Package batcher answers paginated list queries for content entities with a
// fixed number of data-source round trips: one page query, one count, and one
// batched query per related entity kind, independent of the page size.
package batcher

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sdko-org/content-query/internal/cache"
	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/metrics"
	"github.com/sdko-org/content-query/internal/models"
	"github.com/sdko-org/content-query/internal/tracker"
	"github.com/sirupsen/logrus"
)

const (
	EntityBlogs    = "blogs"
	EntityPrograms = "programs"

	DefaultBlogsTTL    = 2 * time.Minute
	DefaultProgramsTTL = 5 * time.Minute
	DefaultEmptyTTL    = 30 * time.Second
)

// DataSource is the raw read surface of the relational store. Page queries
// select scalar and foreign-key columns only; relations are loaded through
// the *ByIDs / owner-id methods.
type DataSource interface {
	FindBlogs(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Blog, error)
	CountBlogs(ctx context.Context, filter content.Filter) (int64, error)
	FindPrograms(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Program, error)
	CountPrograms(ctx context.Context, filter content.Filter) (int64, error)

	FindImagesByIDs(ctx context.Context, ids []uint) ([]models.Image, error)
	FindAuthorsByIDs(ctx context.Context, ids []uint) ([]models.Author, error)
	FindBlogTranslations(ctx context.Context, blogIDs []uint, language string) ([]models.BlogTranslation, error)
	FindProgramTranslations(ctx context.Context, programIDs []uint, language string) ([]models.ProgramTranslation, error)
	FindGalleryItems(ctx context.Context, programIDs []uint) ([]models.GalleryItem, error)
}

type Options struct {
	BlogsTTL    time.Duration
	ProgramsTTL time.Duration
	EmptyTTL    time.Duration
	Resolver    content.URLResolver
	Tracker     *tracker.Tracker
}

type Batcher struct {
	ds    DataSource
	cache *cache.Cache
	opts  Options
	log   *logrus.Entry
}

func New(logger *logrus.Logger, ds DataSource, c *cache.Cache, opts Options) *Batcher {
	if opts.BlogsTTL <= 0 {
		opts.BlogsTTL = DefaultBlogsTTL
	}
	if opts.ProgramsTTL <= 0 {
		opts.ProgramsTTL = DefaultProgramsTTL
	}
	if opts.EmptyTTL <= 0 {
		opts.EmptyTTL = DefaultEmptyTTL
	}
	return &Batcher{
		ds:    ds,
		cache: c,
		opts:  opts,
		log:   logger.WithField("component", "query_batcher"),
	}
}

// CacheKey builds the deterministic key for a list query. Filter maps are
// encoded with sorted keys so equal filters always produce equal keys.
func CacheKey(entity string, q content.Query) string {
	q = q.Normalize()
	filter := []byte("{}")
	if len(q.Filter) > 0 {
		if b, err := json.Marshal(q.Filter); err == nil {
			filter = b
		} else {
			filter = []byte(fmt.Sprintf("%v", map[string]interface{}(q.Filter)))
		}
	}
	return fmt.Sprintf("%s:list:%s:p%d:l%d:%s", entity, filter, q.Page, q.Limit, q.Language)
}

// lookup returns a cached page for key. Undecodable entries are dropped and
// reported as a miss.
func lookup[T any](b *Batcher, entity, key string) (content.Page[T], bool) {
	var page content.Page[T]

	raw, ok := safeGet(b.cache, key)
	if !ok {
		metrics.CacheLookups.WithLabelValues(entity, "miss").Inc()
		return page, false
	}
	data, ok := raw.([]byte)
	if !ok || json.Unmarshal(data, &page) != nil {
		b.log.WithField("key", key).Warn("Dropping unreadable cache entry")
		safeDelete(b.cache, key)
		metrics.CacheLookups.WithLabelValues(entity, "miss").Inc()
		return content.Page[T]{}, false
	}
	metrics.CacheLookups.WithLabelValues(entity, "hit").Inc()
	return page, true
}

// store encodes page into the cache. The encoded form keeps cached pages
// immutable: every hit decodes a fresh copy.
func store[T any](b *Batcher, key string, page content.Page[T], ttl time.Duration) {
	data, err := json.Marshal(page)
	if err != nil {
		b.log.WithError(err).WithField("key", key).Warn("Failed to encode page for cache")
		return
	}
	safeSet(b.cache, key, data, ttl)
}

func safeGet(c *cache.Cache, key string) (v interface{}, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v, ok = nil, false
		}
	}()
	return c.Get(key)
}

func safeSet(c *cache.Cache, key string, v interface{}, ttl time.Duration) {
	defer func() { _ = recover() }()
	c.Set(key, v, ttl)
}

func safeDelete(c *cache.Cache, key string) {
	defer func() { _ = recover() }()
	c.Delete(key)
}

// roundTrip runs one data-source call under the tracker as "<entity>.<step>".
// Round trips run on errgroup goroutines, so a panic in the data source is
// converted to an error here rather than left to crash the process.
func roundTrip[T any](ctx context.Context, b *Batcher, entity, step string, fn func(context.Context) (T, error)) (T, error) {
	name := entity + "." + step
	return tracker.Run(ctx, b.opts.Tracker, name, func(ctx context.Context) (v T, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn(ctx)
	})
}

// distinct returns the unique ids in first-seen order.
func distinct(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func indexImages(images []models.Image) map[uint]*models.Image {
	m := make(map[uint]*models.Image, len(images))
	for i := range images {
		m[images[i].ID] = &images[i]
	}
	return m
}
