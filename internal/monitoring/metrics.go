// Package monitoring provides in-memory operational metrics.
//
// DESIGN: Lightweight counters updated on every request:
//   - totalRequests/totalErrors: request and >=400 outcome counts
//   - endpointCounts:            hits per "METHOD PATH"
//   - responseTimes:             bounded ring of the last 1000 latencies
//
// The collector is explicitly constructed and injected, never a package
// global, so tests get isolated instances. All mutations are safe under
// concurrent in-flight requests.
package monitoring

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics for the gateway.
type MetricsCollector struct {
	startedAt time.Time

	totalRequests atomic.Int64
	totalErrors   atomic.Int64

	mu             sync.Mutex
	endpointCounts map[string]int64
	samples        []time.Duration // ring buffer, capacity sampleCap
	sampleNext     int
	sampleCount    int
	sampleCap      int
}

// NewMetricsCollector creates a collector with the given latency ring
// capacity.
func NewMetricsCollector(sampleCap int) *MetricsCollector {
	if sampleCap <= 0 {
		sampleCap = 1
	}
	return &MetricsCollector{
		startedAt:      time.Now(),
		endpointCounts: make(map[string]int64),
		samples:        make([]time.Duration, sampleCap),
		sampleCap:      sampleCap,
	}
}

// RecordStart counts an inbound request against its endpoint.
func (mc *MetricsCollector) RecordStart(method, path string) {
	mc.totalRequests.Add(1)
	key := method + " " + path
	mc.mu.Lock()
	mc.endpointCounts[key]++
	mc.mu.Unlock()
}

// RecordEnd records the final status and latency of a request. Fires exactly
// once per request, on every exit path.
func (mc *MetricsCollector) RecordEnd(status int, elapsed time.Duration) {
	if status >= 400 {
		mc.totalErrors.Add(1)
	}
	mc.mu.Lock()
	mc.samples[mc.sampleNext] = elapsed
	mc.sampleNext = (mc.sampleNext + 1) % mc.sampleCap
	if mc.sampleCount < mc.sampleCap {
		mc.sampleCount++
	}
	mc.mu.Unlock()
}

// StartedAt returns when the collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Snapshot is the JSON shape served by GET /metrics.
type Snapshot struct {
	TotalRequests       int64            `json:"totalRequests"`
	TotalErrors         int64            `json:"totalErrors"`
	AverageResponseTime int64            `json:"averageResponseTime"`
	EndpointCounts      map[string]int64 `json:"endpointCounts"`
	Uptime              int64            `json:"uptime"`
	UptimeFormatted     string           `json:"uptimeFormatted"`
}

// Snapshot returns current metrics. Average response time is the arithmetic
// mean over the ring, in milliseconds, 0 when no samples exist.
func (mc *MetricsCollector) Snapshot() Snapshot {
	uptime := time.Since(mc.startedAt)

	mc.mu.Lock()
	counts := make(map[string]int64, len(mc.endpointCounts))
	for k, v := range mc.endpointCounts {
		counts[k] = v
	}
	var sum time.Duration
	for i := 0; i < mc.sampleCount; i++ {
		sum += mc.samples[i]
	}
	n := mc.sampleCount
	mc.mu.Unlock()

	var avg int64
	if n > 0 {
		avg = (sum / time.Duration(n)).Round(time.Millisecond).Milliseconds()
	}

	return Snapshot{
		TotalRequests:       mc.totalRequests.Load(),
		TotalErrors:         mc.totalErrors.Load(),
		AverageResponseTime: avg,
		EndpointCounts:      counts,
		Uptime:              uptime.Milliseconds(),
		UptimeFormatted:     formatUptime(uptime),
	}
}

// formatUptime renders a duration as "XhYmZs".
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
