package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// AccessLogEntry carries the per-iteration fields spec §4.6 requires in
// the access log. Fields the Connection Driver could not populate — no
// request parsed, no request-id issued — use "-" (Method, Path, Query)
// per spec §4.5's "Fields with no available request use... '-' (logs)".
type AccessLogEntry struct {
	Remote        string
	Method        string
	Path          string
	Query         string
	Version       string
	Status        int
	DurationMs    float64
	Bytes         int64
	ContentLength int64
	KeepAlive     bool
	RequestID     string
}

// AccessLogger emits one structured line per AccessLogEntry through a
// zap.Logger, matching the middleware shape sofatutor-llm-proxy wires
// around its HTTP handlers. Disabled loggers are a no-op, letting the
// Connection Driver call Log unconditionally on every iteration.
type AccessLogger struct {
	logger  *zap.Logger
	enabled bool
}

// NewAccessLogger wraps logger. When enabled is false, Log is a no-op —
// this is the configuration-surface toggle of spec §6's access_log flag.
func NewAccessLogger(logger *zap.Logger, enabled bool) *AccessLogger {
	return &AccessLogger{logger: logger, enabled: enabled}
}

// Log emits e as a single structured line at info level.
func (a *AccessLogger) Log(e AccessLogEntry) {
	if !a.enabled {
		return
	}
	line := fmt.Sprintf(
		"remote=%s method=%s path=%s query=%s version=%s status=%d duration_ms=%.3f bytes=%d content_length=%d keep_alive=%t request_id=%s",
		e.Remote, e.Method, e.Path, e.Query, e.Version, e.Status, e.DurationMs, e.Bytes, e.ContentLength, e.KeepAlive, e.RequestID,
	)
	a.logger.Info(line)
}
