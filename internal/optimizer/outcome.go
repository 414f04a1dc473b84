package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdko-org/content-query/internal/metrics"
	"github.com/sdko-org/content-query/internal/tracker"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// ErrNoFallback is returned when the optimized path fails and the caller
// supplied no fallback.
var ErrNoFallback = errors.New("optimized query failed and no fallback is configured")

// Outcome records which path produced Value. Degraded is set when the
// optimized path failed (or was skipped by an open breaker) and the fallback
// served the request; Cause holds the optimized path's error.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Cause    error
}

// QueryFunc is one way of answering a read query.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// Execute attempts optimized and falls back to fallback on any failure,
// including panics. Only the fallback's error is ever returned, unchanged.
func Execute[T any](ctx context.Context, s *Service, entity string, optimized, fallback QueryFunc[T]) (Outcome[T], error) {
	value, cause := attempt(ctx, s, entity, optimized)
	if cause == nil {
		return Outcome[T]{Value: value}, nil
	}

	log := s.log.WithFields(logrus.Fields{
		"entity": entity,
		"cause":  cause.Error(),
	})
	if errors.Is(cause, gobreaker.ErrOpenState) || errors.Is(cause, gobreaker.ErrTooManyRequests) {
		log.Debug("Optimized path short-circuited, serving legacy query")
	} else {
		log.Warn("Optimized query failed, serving legacy query")
	}
	metrics.Fallbacks.WithLabelValues(entity).Inc()

	out := Outcome[T]{Degraded: true, Cause: cause}
	if fallback == nil {
		err := errors.Join(ErrNoFallback, cause)
		_ = s.tracker.Track(ctx, entity+".fallback", func(context.Context) error { return err })
		return out, err
	}

	v, err := tracker.Run(ctx, s.tracker, entity+".fallback", fallback)
	if err != nil {
		return out, err
	}
	out.Value = v
	return out, nil
}

func attempt[T any](ctx context.Context, s *Service, entity string, optimized QueryFunc[T]) (value T, err error) {
	if optimized == nil {
		return value, errors.New("no optimized query")
	}

	run := func() (T, error) {
		return tracker.Run(ctx, s.tracker, entity+".optimized", func(ctx context.Context) (v T, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("optimized %s query panicked: %v", entity, r)
				}
			}()
			return optimized(ctx)
		})
	}

	cb := s.breaker(entity)
	if cb == nil {
		return run()
	}
	res, err := cb.Execute(func() (any, error) {
		v, err := run()
		return v, err
	})
	if err != nil {
		return value, err
	}
	value, _ = res.(T)
	return value, nil
}
