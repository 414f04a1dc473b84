package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sdko-org/content-query/internal/tracker"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	degradedErrorRate    = 10.0
	unhealthyErrorRate   = 50.0
	degradedFallbackRate = 10.0

	optimizedSuffix = ".optimized"
	fallbackSuffix  = ".fallback"
)

// requestSummary counts list requests by how they ended. Each request
// either succeeds on the optimized path or reaches the fallback, so the
// per-step round-trip metrics are not counted here.
type requestSummary struct {
	Requests     int
	Failed       int
	FallbackUsed int
}

func (r requestSummary) failureRate() float64 {
	if r.Requests == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Requests) * 100
}

func (r requestSummary) fallbackRate() float64 {
	if r.Requests == 0 {
		return 0
	}
	return float64(r.FallbackUsed) / float64(r.Requests) * 100
}

func summarizeRequests(stats map[string]tracker.AggregateStats) requestSummary {
	var r requestSummary
	for name, st := range stats {
		switch {
		case strings.HasSuffix(name, optimizedSuffix):
			r.Requests += st.Count - st.Errors
		case strings.HasSuffix(name, fallbackSuffix):
			r.Requests += st.Count
			r.FallbackUsed += st.Count
			r.Failed += st.Errors
		}
	}
	return r
}

type Health struct {
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details"`
}

// HealthCheck reports cache size, request outcomes and open breakers.
// Requests served by the fallback count as degraded, not failed; only
// requests that returned an error count toward the unhealthy threshold.
// Any failure while computing the report yields an unhealthy status.
func (s *Service) HealthCheck() (h Health) {
	defer func() {
		if r := recover(); r != nil {
			h = Health{
				Status: StatusUnhealthy,
				Details: map[string]interface{}{
					"error":     fmt.Sprint(r),
					"timestamp": time.Now().UTC(),
				},
			}
		}
	}()

	cacheStats := s.cache.Stats()
	overview := s.tracker.Overview()
	open := s.openBreakers()
	sort.Strings(open)

	requests := summarizeRequests(s.tracker.Stats())
	failureRate := requests.failureRate()
	fallbackRate := requests.fallbackRate()

	status := StatusHealthy
	switch {
	case failureRate >= unhealthyErrorRate:
		status = StatusUnhealthy
	case failureRate >= degradedErrorRate || fallbackRate >= degradedFallbackRate || len(open) > 0:
		status = StatusDegraded
	}

	return Health{
		Status: status,
		Details: map[string]interface{}{
			"cacheSize":      cacheStats.Size,
			"cacheHits":      cacheStats.Hits,
			"cacheMisses":    cacheStats.Misses,
			"totalQueries":   overview.TotalQueries,
			"totalErrors":    overview.TotalErrors,
			"errorRate":      overview.ErrorRate,
			"requests":       requests.Requests,
			"failedRequests": requests.Failed,
			"failureRate":    failureRate,
			"fallbackRate":   fallbackRate,
			"openBreakers":   open,
			"timestamp":      time.Now().UTC(),
		},
	}
}
