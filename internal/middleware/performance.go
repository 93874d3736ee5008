// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/threadline-dev/threadline/internal/logging"
)

// slowRequestThreshold is the duration past which a request earns a
// structured warning carrying its route and request id.
const slowRequestThreshold = time.Second

// PerformanceMonitor keeps a rolling window of request latencies per
// route pattern, independent of what Prometheus retains, for the
// /debug/performance endpoint.
type PerformanceMonitor struct {
	mu     sync.Mutex
	window int
	routes map[string]*latencyWindow
}

type latencyWindow struct {
	samplesMS []int64
	next      int
	full      bool
	count     int64
}

// EndpointStats is one route's view in the /debug/performance payload.
type EndpointStats struct {
	Route string `json:"route"`
	Count int64  `json:"count"`
	P50MS int64  `json:"p50_ms"`
	P95MS int64  `json:"p95_ms"`
	P99MS int64  `json:"p99_ms"`
	MaxMS int64  `json:"max_ms"`
}

// NewPerformanceMonitor returns a monitor keeping up to window latency
// samples per route.
func NewPerformanceMonitor(window int) *PerformanceMonitor {
	if window <= 0 {
		window = 1000
	}
	return &PerformanceMonitor{
		window: window,
		routes: make(map[string]*latencyWindow),
	}
}

// Middleware records the latency of every request under its chi route
// pattern and warns on requests past slowRequestThreshold.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)

		route := routePattern(r)
		pm.record(route, elapsed.Milliseconds())

		if elapsed >= slowRequestThreshold {
			logging.Warn().
				Str("route", route).
				Str("request_id", logging.RequestIDFromContext(r.Context())).
				Int64("duration_ms", elapsed.Milliseconds()).
				Msg("slow http request")
		}
	})
}

func (pm *PerformanceMonitor) record(route string, durationMS int64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	win, ok := pm.routes[route]
	if !ok {
		win = &latencyWindow{samplesMS: make([]int64, pm.window)}
		pm.routes[route] = win
	}
	win.samplesMS[win.next] = durationMS
	win.next++
	if win.next == pm.window {
		win.next = 0
		win.full = true
	}
	win.count++
}

// GetStats returns per-route latency percentiles over each route's
// current window, sorted by route for stable output.
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	stats := make([]EndpointStats, 0, len(pm.routes))
	for route, win := range pm.routes {
		samples := win.samplesMS[:win.next]
		if win.full {
			samples = win.samplesMS
		}
		sorted := append([]int64(nil), samples...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		stats = append(stats, EndpointStats{
			Route: route,
			Count: win.count,
			P50MS: percentile(sorted, 0.50),
			P95MS: percentile(sorted, 0.95),
			P99MS: percentile(sorted, 0.99),
			MaxMS: sorted[len(sorted)-1],
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Route < stats[j].Route })
	return stats
}

func percentile(sorted []int64, p float64) int64 {
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
