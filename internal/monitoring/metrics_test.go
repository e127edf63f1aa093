package monitoring_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mangodesk/summary-gateway/internal/monitoring"
)

func TestRecordAndSnapshot(t *testing.T) {
	mc := monitoring.NewMetricsCollector(1000)

	mc.RecordStart("POST", "/v1/summarize")
	mc.RecordEnd(200, 100*time.Millisecond)
	mc.RecordStart("POST", "/v1/summarize")
	mc.RecordEnd(400, 300*time.Millisecond)
	mc.RecordStart("GET", "/metrics")
	mc.RecordEnd(200, 200*time.Millisecond)

	snap := mc.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors, "only status >= 400 counts as error")
	assert.Equal(t, int64(2), snap.EndpointCounts["POST /v1/summarize"])
	assert.Equal(t, int64(1), snap.EndpointCounts["GET /metrics"])
	assert.Equal(t, int64(200), snap.AverageResponseTime)
	assert.GreaterOrEqual(t, snap.Uptime, int64(0))
	assert.Regexp(t, `^\d+h \d+m \d+s$`, snap.UptimeFormatted)
}

func TestSnapshotEmpty(t *testing.T) {
	mc := monitoring.NewMetricsCollector(1000)
	snap := mc.Snapshot()
	assert.Equal(t, int64(0), snap.TotalRequests)
	assert.Equal(t, int64(0), snap.AverageResponseTime, "no samples means zero mean")
	assert.Empty(t, snap.EndpointCounts)
}

func TestRingEvictsOldest(t *testing.T) {
	mc := monitoring.NewMetricsCollector(3)

	// Fill the ring with slow samples, then push them out with fast ones.
	for i := 0; i < 3; i++ {
		mc.RecordEnd(200, time.Second)
	}
	for i := 0; i < 3; i++ {
		mc.RecordEnd(200, 10*time.Millisecond)
	}

	snap := mc.Snapshot()
	assert.Equal(t, int64(10), snap.AverageResponseTime, "old samples must be evicted")
}

func TestConcurrentRecording(t *testing.T) {
	mc := monitoring.NewMetricsCollector(1000)

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mc.RecordStart("POST", "/v1/summarize")
			status := 200
			if i%2 == 0 {
				status = 502
			}
			mc.RecordEnd(status, time.Millisecond)
		}(i)
	}
	wg.Wait()

	snap := mc.Snapshot()
	assert.Equal(t, int64(n), snap.TotalRequests, "no lost increments")
	assert.Equal(t, int64(n/2), snap.TotalErrors)
	assert.Equal(t, int64(n), snap.EndpointCounts["POST /v1/summarize"])
}
