// Package observability implements the Observability Adapter (spec §4.6):
// one access-log entry and one metrics record emitted per connection
// iteration, on every path including failures.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"originserver/internal/httpstatus"
)

// MetricsSink is the thread-safe metrics interface of spec §4.6.
// Implementations must update counters with atomic adds — never a coarse
// lock — so that Snapshot reads are eventually consistent under
// concurrent recorders.
type MetricsSink interface {
	ConnectionOpened()
	ConnectionClosed()
	// RecordRequest records one completed connection iteration. method is
	// "" when no request was successfully parsed (spec §4.5: "Fields with
	// no available request use... null (metrics)").
	RecordRequest(method string, status int, durationMs float64, bytesWritten int64)
	Snapshot() Snapshot
}

// Snapshot is the JSON-serializable view of the metrics sink's current
// totals, with the stable key names spec §4.6 requires.
type Snapshot struct {
	TotalRequests     int64            `json:"totalRequests"`
	ActiveConnections int64            `json:"activeConnections"`
	BytesSent         int64            `json:"bytesSent"`
	StatusCounts      map[string]int64 `json:"statusCounts"`
	LatencyBuckets    map[string]int64 `json:"latencyBuckets"`
}

// latencyBucket buckets a duration into the four half-open intervals of
// spec §4.6.
func latencyBucket(durationMs float64) string {
	switch {
	case durationMs < 100:
		return "lt100ms"
	case durationMs < 500:
		return "lt500ms"
	case durationMs < 1000:
		return "lt1s"
	default:
		return "ge1s"
	}
}

var statusClasses = []httpstatus.Class{
	httpstatus.ClassSuccess, httpstatus.ClassClientError,
	httpstatus.ClassServerError, httpstatus.ClassOther,
}

var latencyBuckets = []string{"lt100ms", "lt500ms", "lt1s", "ge1s"}

// PromMetrics is the default MetricsSink, backed by prometheus
// client_golang counters and gauges — atomic by construction, safe for
// concurrent mutation without any sink-level lock.
type PromMetrics struct {
	totalRequests     prometheus.Counter
	activeConnections prometheus.Gauge
	bytesSent         prometheus.Counter
	statusCounts      *prometheus.CounterVec
	latencyBuckets    *prometheus.CounterVec
}

// NewPromMetrics constructs a PromMetrics and registers its collectors
// with reg. Pass prometheus.NewRegistry() for an isolated registry, or
// nil to use the default global registerer.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		totalRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "originserver_requests_total",
			Help: "Total number of request/response cycles handled.",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "originserver_active_connections",
			Help: "Number of currently open connections.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "originserver_bytes_sent_total",
			Help: "Total response bytes written to clients.",
		}),
		statusCounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "originserver_status_class_total",
			Help: "Request count by status class.",
		}, []string{"class"}),
		latencyBuckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "originserver_latency_bucket_total",
			Help: "Request count by latency bucket.",
		}, []string{"bucket"}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.totalRequests, m.activeConnections, m.bytesSent, m.statusCounts, m.latencyBuckets)

	// Pre-create every label series so Snapshot always reports a complete
	// key set, even at zero.
	for _, c := range statusClasses {
		m.statusCounts.WithLabelValues(string(c))
	}
	for _, b := range latencyBuckets {
		m.latencyBuckets.WithLabelValues(b)
	}

	return m
}

func (m *PromMetrics) ConnectionOpened() { m.activeConnections.Inc() }
func (m *PromMetrics) ConnectionClosed() { m.activeConnections.Dec() }

func (m *PromMetrics) RecordRequest(method string, status int, durationMs float64, bytesWritten int64) {
	m.totalRequests.Inc()
	m.bytesSent.Add(float64(bytesWritten))
	m.statusCounts.WithLabelValues(string(httpstatus.ClassOf(status))).Inc()
	m.latencyBuckets.WithLabelValues(latencyBucket(durationMs)).Inc()
}

func (m *PromMetrics) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:     int64(readCounter(m.totalRequests)),
		ActiveConnections: int64(readGauge(m.activeConnections)),
		BytesSent:         int64(readCounter(m.bytesSent)),
		StatusCounts:      make(map[string]int64, len(statusClasses)),
		LatencyBuckets:    make(map[string]int64, len(latencyBuckets)),
	}
	for _, c := range statusClasses {
		snap.StatusCounts[string(c)] = int64(readCounter(m.statusCounts.WithLabelValues(string(c))))
	}
	for _, b := range latencyBuckets {
		snap.LatencyBuckets[b] = int64(readCounter(m.latencyBuckets.WithLabelValues(b)))
	}
	return snap
}

func readCounter(c prometheus.Counter) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}

func readGauge(g prometheus.Gauge) float64 {
	var out dto.Metric
	if err := g.Write(&out); err != nil {
		return 0
	}
	return out.GetGauge().GetValue()
}
