// Package optimizer is the entry point route handlers use for content reads.
// It serves list queries through the batcher and result cache, falls back to
// the caller's legacy query when the optimized path fails, and exposes cache
// invalidation, query statistics and a health check.
package optimizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sdko-org/content-query/internal/batcher"
	"github.com/sdko-org/content-query/internal/cache"
	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/metrics"
	"github.com/sdko-org/content-query/internal/tracker"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const defaultTrackerCleanupInterval = 10 * time.Minute

type Options struct {
	BlogsTTL      time.Duration
	ProgramsTTL   time.Duration
	EmptyTTL      time.Duration
	WarnThreshold time.Duration
	BufferSize    int

	// CleanupInterval drives the cache purger and tracker buffer cleanup.
	CleanupInterval time.Duration

	// BreakerFailures is the number of consecutive optimized-path failures
	// that opens an entity's breaker. Zero disables breakers.
	BreakerFailures int
	BreakerTimeout  time.Duration

	Resolver content.URLResolver
}

type Service struct {
	log     *logrus.Entry
	logger  *logrus.Logger
	cache   *cache.Cache
	tracker *tracker.Tracker
	batcher *batcher.Batcher
	opts    Options

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[any]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an isolated service with its own cache and tracker.
func New(logger *logrus.Logger, ds batcher.DataSource, opts Options) *Service {
	c := cache.New()
	t := tracker.New(logger, opts.BufferSize, opts.WarnThreshold)
	b := batcher.New(logger, ds, c, batcher.Options{
		BlogsTTL:    opts.BlogsTTL,
		ProgramsTTL: opts.ProgramsTTL,
		EmptyTTL:    opts.EmptyTTL,
		Resolver:    opts.Resolver,
		Tracker:     t,
	})
	if opts.BreakerFailures > 0 && opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	return &Service{
		log:      logger.WithField("component", "query_optimizer"),
		logger:   logger,
		cache:    c,
		tracker:  t,
		batcher:  b,
		opts:     opts,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Start launches the cache purger and the tracker cleanup loop. Both stop on
// Close or when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	purger := cache.NewPurger(s.logger, s.cache, s.opts.CleanupInterval)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		purger.Start(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.cleanupMetrics(ctx)
	}()
}

func (s *Service) cleanupMetrics(ctx context.Context) {
	interval := s.opts.CleanupInterval
	if interval <= 0 {
		interval = defaultTrackerCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tracker.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// Close stops background loops started by Start.
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) breaker(entity string) *gobreaker.CircuitBreaker[any] {
	if s.opts.BreakerFailures <= 0 {
		return nil
	}
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()

	if cb, ok := s.breakers[entity]; ok {
		return cb
	}
	failures := uint32(s.opts.BreakerFailures)
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        entity,
		MaxRequests: 1,
		Timeout:     s.opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsExcluded: isCallerAbort,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			s.log.WithFields(logrus.Fields{
				"entity": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Optimized query breaker changed state")
		},
	})
	s.breakers[entity] = cb
	return cb
}

// isCallerAbort reports errors caused by the caller giving up, such as a
// client disconnect. They say nothing about the data source.
func isCallerAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) openBreakers() []string {
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()

	var open []string
	for name, cb := range s.breakers {
		if cb.State() == gobreaker.StateOpen {
			open = append(open, name)
		}
	}
	return open
}

// Legacy is the unoptimized handler for a list query, used as the fallback.
type Legacy[T any] func(ctx context.Context, q content.Query) (content.Page[T], error)

func (l Legacy[T]) bind(q content.Query) QueryFunc[content.Page[T]] {
	if l == nil {
		return nil
	}
	return func(ctx context.Context) (content.Page[T], error) {
		return l(ctx, q)
	}
}

// ListBlogs serves a blog page through the optimized path, or through
// fallback when that fails. The page shape is the same either way.
func (s *Service) ListBlogs(ctx context.Context, q content.Query, fallback Legacy[content.BlogView]) (content.Page[content.BlogView], error) {
	out, err := Execute(ctx, s, batcher.EntityBlogs, func(ctx context.Context) (content.Page[content.BlogView], error) {
		return s.batcher.ListBlogs(ctx, q)
	}, fallback.bind(q))
	return out.Value, err
}

// ListPrograms is the program counterpart of ListBlogs.
func (s *Service) ListPrograms(ctx context.Context, q content.Query, fallback Legacy[content.ProgramView]) (content.Page[content.ProgramView], error) {
	out, err := Execute(ctx, s, batcher.EntityPrograms, func(ctx context.Context) (content.Page[content.ProgramView], error) {
		return s.batcher.ListPrograms(ctx, q)
	}, fallback.bind(q))
	return out.Value, err
}

// Stats returns aggregate query statistics per tracked operation.
func (s *Service) Stats() map[string]tracker.AggregateStats {
	return s.tracker.Stats()
}

func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Overview summarizes every tracked operation.
func (s *Service) Overview() tracker.SystemOverview {
	return s.tracker.Overview()
}
