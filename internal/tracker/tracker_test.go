package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by step on every reading, so each tracked call
// takes exactly one step.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func newTestTracker(maxSize int, step time.Duration) (*Tracker, *test.Hook) {
	logger, hook := test.NewNullLogger()
	tr := New(logger, maxSize, 500*time.Millisecond)
	tr.now = steppingClock(step)
	tr.export = nil
	return tr, hook
}

func TestTrack_RecordsSuccess(t *testing.T) {
	tr, _ := newTestTracker(10, 20*time.Millisecond)

	err := tr.Track(context.Background(), "blogs.list", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	recent := tr.Recent("blogs.list")
	require.Len(t, recent, 1)
	assert.Equal(t, OutcomeSuccess, recent[0].Outcome)
	assert.Equal(t, int64(20), recent[0].DurationMs)
}

func TestTrack_ReturnsOriginalErrorAndRecordsIt(t *testing.T) {
	tr, _ := newTestTracker(10, time.Millisecond)
	boom := errors.New("boom")

	err := tr.Track(context.Background(), "blogs.list", func(ctx context.Context) error {
		return boom
	})

	assert.Same(t, boom, err)
	stats := tr.Stats()["blogs.list"]
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, float64(100), stats.ErrorRate)
}

func TestRun_ReturnsValue(t *testing.T) {
	tr, _ := newTestTracker(10, time.Millisecond)

	v, err := Run(context.Background(), tr, "count", func(ctx context.Context) (int64, error) {
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestRun_NilTrackerRunsUntracked(t *testing.T) {
	v, err := Run(context.Background(), (*Tracker)(nil), "noop", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestRun_RecordsPanicAsErrorAndRepanics(t *testing.T) {
	tr, _ := newTestTracker(10, time.Millisecond)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tr.Track(context.Background(), "explode", func(ctx context.Context) error {
			panic("kaboom")
		})
	})

	recent := tr.Recent("explode")
	require.Len(t, recent, 1)
	assert.Equal(t, OutcomeError, recent[0].Outcome)
}

func TestTrack_WarnsWhenSlow(t *testing.T) {
	tr, hook := newTestTracker(10, 2*time.Second)

	_ = tr.Track(context.Background(), "programs.list", func(ctx context.Context) error { return nil })

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "programs.list", entry.Data["operation"])
}

func TestTrack_PerCallThresholdOverride(t *testing.T) {
	tr, hook := newTestTracker(10, 100*time.Millisecond)

	_ = tr.Track(context.Background(), "fast", func(ctx context.Context) error { return nil })
	assert.Empty(t, hook.AllEntries())

	_ = tr.Track(context.Background(), "fast", func(ctx context.Context) error { return nil },
		WithWarnThreshold(50*time.Millisecond))
	require.Len(t, hook.AllEntries(), 1)
}

func TestTrack_BufferNeverExceedsMax(t *testing.T) {
	tr, _ := newTestTracker(5, time.Millisecond)

	for i := 0; i < 23; i++ {
		_ = tr.Track(context.Background(), "blogs.list", func(ctx context.Context) error { return nil })
		assert.LessOrEqual(t, len(tr.Recent("blogs.list")), 5)
	}

	recent := tr.Recent("blogs.list")
	require.Len(t, recent, 5)
	assert.True(t, recent[0].Timestamp.Before(recent[4].Timestamp), "oldest entries are evicted first")
}

func TestTrack_TruncatesLongNames(t *testing.T) {
	tr, _ := newTestTracker(5, time.Millisecond)
	long := strings.Repeat("x", 150)

	_ = tr.Track(context.Background(), long, func(ctx context.Context) error { return nil })

	stats := tr.Stats()
	require.Len(t, stats, 1)
	for name := range stats {
		assert.Len(t, name, maxOperationName)
	}
}

func TestStats_Aggregates(t *testing.T) {
	tr, _ := newTestTracker(10, time.Millisecond)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.buffers["op"] = []QueryMetric{
		{Operation: "op", DurationMs: 10, Timestamp: base, Outcome: OutcomeSuccess},
		{Operation: "op", DurationMs: 30, Timestamp: base.Add(time.Second), Outcome: OutcomeError},
		{Operation: "op", DurationMs: 20, Timestamp: base.Add(2 * time.Second), Outcome: OutcomeSuccess},
		{Operation: "op", DurationMs: 40, Timestamp: base.Add(3 * time.Second), Outcome: OutcomeSuccess},
	}

	s := tr.Stats()["op"]

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 25.0, s.AvgDurationMs)
	assert.Equal(t, int64(10), s.MinDurationMs)
	assert.Equal(t, int64(40), s.MaxDurationMs)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 25.0, s.ErrorRate)
	assert.Equal(t, base.Add(3*time.Second), s.LastExecuted)
}

func TestOverview(t *testing.T) {
	tr, _ := newTestTracker(10, time.Millisecond)
	ctx := context.Background()

	_ = tr.Track(ctx, "b", func(ctx context.Context) error { return nil })
	_ = tr.Track(ctx, "a", func(ctx context.Context) error { return errors.New("x") })
	_ = tr.Track(ctx, "a", func(ctx context.Context) error { return nil })
	_ = tr.Track(ctx, "a", func(ctx context.Context) error { return nil })

	o := tr.Overview()
	assert.Equal(t, 4, o.TotalQueries)
	assert.Equal(t, 1, o.TotalErrors)
	assert.Equal(t, 25.0, o.ErrorRate)
	assert.Equal(t, []string{"a", "b"}, o.Operations)
}

func TestCleanup_TruncatesToMax(t *testing.T) {
	tr, _ := newTestTracker(3, time.Millisecond)
	for i := 0; i < 8; i++ {
		tr.buffers["op"] = append(tr.buffers["op"], QueryMetric{Operation: "op", DurationMs: int64(i)})
	}
	tr.buffers["empty"] = nil

	tr.Cleanup()

	recent := tr.Recent("op")
	require.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].DurationMs)
	assert.NotContains(t, tr.Stats(), "empty")
}

func TestRecord_SwallowsExportFailures(t *testing.T) {
	tr, _ := newTestTracker(3, time.Millisecond)
	tr.export = func(QueryMetric, bool) { panic("exporter down") }

	assert.NotPanics(t, func() {
		err := tr.Track(context.Background(), "op", func(ctx context.Context) error { return nil })
		assert.NoError(t, err)
	})
	assert.Len(t, tr.Recent("op"), 1)
}
