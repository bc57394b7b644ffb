package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) *PromMetrics {
	t.Helper()
	return NewPromMetrics(prometheus.NewRegistry())
}

func TestMetricsSnapshotStartsAtZeroWithFullKeySet(t *testing.T) {
	m := newTestMetrics(t)
	snap := m.Snapshot()

	assert.Equal(t, int64(0), snap.TotalRequests)
	assert.Equal(t, int64(0), snap.ActiveConnections)
	assert.Equal(t, int64(0), snap.BytesSent)
	for _, c := range []string{"SUCCESS", "CLIENT_ERROR", "SERVER_ERROR", "OTHER"} {
		assert.Contains(t, snap.StatusCounts, c)
	}
	for _, b := range []string{"lt100ms", "lt500ms", "lt1s", "ge1s"} {
		assert.Contains(t, snap.LatencyBuckets, b)
	}
}

func TestMetricsConnectionOpenedClosedTracksGauge(t *testing.T) {
	m := newTestMetrics(t)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)
}

func TestMetricsRecordRequestBucketsByStatusAndLatency(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordRequest("GET", 200, 42, 128)
	m.RecordRequest("GET", 404, 750, 64)
	m.RecordRequest("", 500, 1500, 0)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(192), snap.BytesSent)
	assert.Equal(t, int64(1), snap.StatusCounts["SUCCESS"])
	assert.Equal(t, int64(1), snap.StatusCounts["CLIENT_ERROR"])
	assert.Equal(t, int64(1), snap.StatusCounts["SERVER_ERROR"])
	assert.Equal(t, int64(1), snap.LatencyBuckets["lt100ms"])
	assert.Equal(t, int64(1), snap.LatencyBuckets["lt1s"])
	assert.Equal(t, int64(1), snap.LatencyBuckets["ge1s"])
}

func TestAccessLoggerDisabledEmitsNothing(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	al := NewAccessLogger(logger, false)

	al.Log(AccessLogEntry{Remote: "127.0.0.1:1", Method: "GET", Path: "/", Status: 200})

	assert.Equal(t, 0, logs.Len())
}

func TestAccessLoggerEnabledEmitsOneLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	al := NewAccessLogger(logger, true)

	al.Log(AccessLogEntry{
		Remote: "127.0.0.1:5555", Method: "GET", Path: "/a", Query: "-",
		Version: "HTTP/1.1", Status: 200, DurationMs: 1.5, Bytes: 10,
		ContentLength: 10, KeepAlive: true, RequestID: "req-1",
	})

	require.Equal(t, 1, logs.Len())
	msg := logs.All()[0].Message
	assert.Contains(t, msg, "method=GET")
	assert.Contains(t, msg, "status=200")
	assert.Contains(t, msg, "request_id=req-1")
}

func TestAccessLoggerMissingRequestUsesDashFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	al := NewAccessLogger(logger, true)

	al.Log(AccessLogEntry{Remote: "127.0.0.1:1", Method: "-", Path: "-", Query: "-", Status: 408})

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "method=-")
}
