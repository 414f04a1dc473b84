// Package tracker measures query latency and keeps a bounded history of
// recent executions per operation name.
package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sdko-org/content-query/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize    = 100
	DefaultWarnThreshold = time.Second
	maxOperationName     = 100
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// QueryMetric is one recorded execution.
type QueryMetric struct {
	Operation  string    `json:"operation"`
	DurationMs int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    Outcome   `json:"outcome"`
}

// AggregateStats is derived from the current buffer of one operation.
type AggregateStats struct {
	Count         int       `json:"count"`
	Errors        int       `json:"errors"`
	AvgDurationMs float64   `json:"avgDurationMs"`
	MinDurationMs int64     `json:"minDurationMs"`
	MaxDurationMs int64     `json:"maxDurationMs"`
	ErrorRate     float64   `json:"errorRate"`
	LastExecuted  time.Time `json:"lastExecuted"`
}

type SystemOverview struct {
	TotalQueries int      `json:"totalQueries"`
	TotalErrors  int      `json:"totalErrors"`
	ErrorRate    float64  `json:"errorRate"`
	Operations   []string `json:"operations"`
}

type trackOptions struct {
	warnThreshold time.Duration
}

type Option func(*trackOptions)

// WithWarnThreshold overrides the tracker's slow-query threshold for one call.
func WithWarnThreshold(d time.Duration) Option {
	return func(o *trackOptions) {
		o.warnThreshold = d
	}
}

type Tracker struct {
	mu            sync.Mutex
	buffers       map[string][]QueryMetric
	maxSize       int
	warnThreshold time.Duration
	log           *logrus.Entry
	now           func() time.Time
	export        func(QueryMetric, bool)
}

func New(logger *logrus.Logger, maxSize int, warnThreshold time.Duration) *Tracker {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	if warnThreshold <= 0 {
		warnThreshold = DefaultWarnThreshold
	}
	return &Tracker{
		buffers:       make(map[string][]QueryMetric),
		maxSize:       maxSize,
		warnThreshold: warnThreshold,
		log:           logger.WithField("component", "query_tracker"),
		now:           time.Now,
		export:        exportMetric,
	}
}

// Track runs fn and records its duration and outcome. The error returned by
// fn is returned unchanged.
func (t *Tracker) Track(ctx context.Context, name string, fn func(context.Context) error, opts ...Option) error {
	_, err := Run(ctx, t, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// Run is the value-returning form of Track. A nil tracker runs fn untracked.
// If fn panics the execution is recorded as an error and the panic continues.
func Run[T any](ctx context.Context, t *Tracker, name string, fn func(context.Context) (T, error), opts ...Option) (result T, err error) {
	if t == nil {
		return fn(ctx)
	}

	o := trackOptions{warnThreshold: t.warnThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	start := t.now()
	completed := false
	defer func() {
		outcome := OutcomeSuccess
		if err != nil || !completed {
			outcome = OutcomeError
		}
		t.record(name, start, t.now().Sub(start), outcome, o.warnThreshold)
	}()

	result, err = fn(ctx)
	completed = true
	return result, err
}

func (t *Tracker) record(name string, start time.Time, d time.Duration, outcome Outcome, warnThreshold time.Duration) {
	defer func() {
		if r := recover(); r != nil && t.log != nil {
			t.log.WithField("panic", r).Debug("Dropped query metric")
		}
	}()

	if runes := []rune(name); len(runes) > maxOperationName {
		name = string(runes[:maxOperationName])
	}
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	m := QueryMetric{
		Operation:  name,
		DurationMs: ms,
		Timestamp:  start,
		Outcome:    outcome,
	}

	t.mu.Lock()
	buf := append(t.buffers[name], m)
	if len(buf) > t.maxSize {
		buf = buf[len(buf)-t.maxSize:]
	}
	t.buffers[name] = buf
	t.mu.Unlock()

	slow := d > warnThreshold
	if slow {
		t.log.WithFields(logrus.Fields{
			"operation":    name,
			"duration_ms":  ms,
			"threshold_ms": warnThreshold.Milliseconds(),
			"outcome":      outcome,
		}).Warn("Slow query detected")
	}

	if t.export != nil {
		t.export(m, slow)
	}
}

func exportMetric(m QueryMetric, slow bool) {
	metrics.QueryDuration.WithLabelValues(m.Operation, string(m.Outcome)).Observe(float64(m.DurationMs) / 1000)
	metrics.QueryTotal.WithLabelValues(m.Operation, string(m.Outcome)).Inc()
	if slow {
		metrics.SlowQueries.WithLabelValues(m.Operation).Inc()
	}
}

// Stats computes aggregate statistics from the current buffers.
func (t *Tracker) Stats() map[string]AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make(map[string]AggregateStats, len(t.buffers))
	for name, buf := range t.buffers {
		if len(buf) == 0 {
			continue
		}
		s := AggregateStats{
			Count:         len(buf),
			MinDurationMs: buf[0].DurationMs,
			MaxDurationMs: buf[0].DurationMs,
		}
		var total int64
		errs := 0
		for _, m := range buf {
			total += m.DurationMs
			if m.DurationMs < s.MinDurationMs {
				s.MinDurationMs = m.DurationMs
			}
			if m.DurationMs > s.MaxDurationMs {
				s.MaxDurationMs = m.DurationMs
			}
			if m.Outcome == OutcomeError {
				errs++
			}
			if m.Timestamp.After(s.LastExecuted) {
				s.LastExecuted = m.Timestamp
			}
		}
		s.AvgDurationMs = float64(total) / float64(len(buf))
		s.Errors = errs
		s.ErrorRate = float64(errs) / float64(len(buf)) * 100
		stats[name] = s
	}
	return stats
}

// Overview summarizes all buffers for health checks.
func (t *Tracker) Overview() SystemOverview {
	t.mu.Lock()
	defer t.mu.Unlock()

	o := SystemOverview{Operations: make([]string, 0, len(t.buffers))}
	for name, buf := range t.buffers {
		o.Operations = append(o.Operations, name)
		o.TotalQueries += len(buf)
		for _, m := range buf {
			if m.Outcome == OutcomeError {
				o.TotalErrors++
			}
		}
	}
	sort.Strings(o.Operations)
	if o.TotalQueries > 0 {
		o.ErrorRate = float64(o.TotalErrors) / float64(o.TotalQueries) * 100
	}
	return o
}

// Cleanup truncates every buffer to the configured maximum, keeping the
// newest metrics, and drops empty buffers.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for name, buf := range t.buffers {
		switch {
		case len(buf) == 0:
			delete(t.buffers, name)
		case len(buf) > t.maxSize:
			trimmed := make([]QueryMetric, t.maxSize)
			copy(trimmed, buf[len(buf)-t.maxSize:])
			t.buffers[name] = trimmed
		}
	}
}

// Recent returns a copy of the buffered metrics for one operation, oldest first.
func (t *Tracker) Recent(name string) []QueryMetric {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]QueryMetric, len(t.buffers[name]))
	copy(out, t.buffers[name])
	return out
}
