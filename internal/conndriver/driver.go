// Package conndriver implements the Connection Driver (spec §4.5): the
// per-connection keep-alive loop, error funnel, and directive-priority
// decision that ties the Parser, a Handler, the Response builder, and the
// Observability Adapter together.
package conndriver

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"originserver/internal/handler"
	"originserver/internal/httpstatus"
	"originserver/internal/observability"
	"originserver/internal/request"
	"originserver/internal/response"
)

// Driver owns one accepted transport connection end to end (spec §4.5).
// It holds only immutable collaborators and per-connection state never
// escapes a single Serve call (spec §5 "Per-connection state, no
// globals").
type Driver struct {
	parser      *request.Parser
	handler     handler.Handler
	readTimeout time.Duration
	metrics     observability.MetricsSink
	accessLog   *observability.AccessLogger
}

// New constructs a Driver. metrics and accessLog may be nil, disabling
// their respective emission (spec §6's access-log/metrics enabled gates
// are expected to be applied by the caller when constructing these
// collaborators).
func New(parser *request.Parser, h handler.Handler, readTimeout time.Duration, metrics observability.MetricsSink, accessLog *observability.AccessLogger) *Driver {
	return &Driver{
		parser:      parser,
		handler:     h,
		readTimeout: readTimeout,
		metrics:     metrics,
		accessLog:   accessLog,
	}
}

// Serve runs the keep-alive loop over conn until either party signals
// close, then closes the socket deterministically (spec §4.5 "Setup",
// "Close the socket... on all exit paths").
func (d *Driver) Serve(conn net.Conn) {
	defer conn.Close()

	if d.metrics != nil {
		d.metrics.ConnectionOpened()
		defer d.metrics.ConnectionClosed()
	}

	br := bufio.NewReader(conn)
	for d.iterate(conn, br) {
	}
}

// iterate runs exactly one keep-alive loop iteration, returning whether
// the Driver should read another request from the same connection.
func (d *Driver) iterate(conn net.Conn, br *bufio.Reader) bool {
	start := time.Now()
	requestID := uuid.NewString()

	if d.readTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(d.readTimeout))
	}

	req, err := d.parser.Parse(br)

	if err == nil && req == nil {
		return false // graceful EOF (spec §4.5 step 2)
	}

	if err != nil {
		var perr *request.ParseError
		if errors.As(err, &perr) {
			resp := response.Error(perr.Status, perr.Status.Reason())
			resp.SetVersion(request.HTTP11)
			_ = resp.WriteFull(conn)
			d.emit(conn, requestID, nil, resp, start)
			return false
		}
		// A raw transport error (timeout, reset, ...): no bytes written,
		// modeled as the synthetic REQUEST_TIMEOUT record of step 4.
		synthetic := response.New().Status(httpstatus.RequestTimeout).KeepAlive(false)
		d.emit(conn, requestID, nil, synthetic, start)
		return false
	}

	if v, ok := req.Headers.Get("X-Request-Id"); ok && strings.TrimSpace(v) != "" {
		requestID = v
	}

	resp := d.invokeHandler(req)
	resp.SetVersion(req.Version)

	var keepAlive bool
	if resp.HasConnectionDirective() {
		keepAlive = resp.IsConnectionPersistent()
	} else {
		keepAlive = req.KeepAlivePolicy()
		resp.KeepAlive(keepAlive)
	}

	if req.Method == request.MethodHEAD {
		_ = resp.WriteHeadersOnly(conn)
	} else {
		_ = resp.WriteFull(conn)
	}

	d.emit(conn, requestID, req, resp, start)

	return keepAlive
}

// invokeHandler calls the handler, recovering any panic into a generic
// 500 so a single request can never kill the connection worker (spec
// §4.5 step 6: "never let it kill the worker").
func (d *Driver) invokeHandler(req *request.Request) (resp *response.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = response.InternalServerError()
		}
	}()
	return d.handler.Handle(req)
}

// emit builds and dispatches exactly one access-log entry and one
// metrics record for the iteration, satisfying the "observability
// coverage" invariant of spec §8 on every path including failures.
func (d *Driver) emit(conn net.Conn, requestID string, req *request.Request, resp *response.Response, start time.Time) {
	durationMs := float64(time.Since(start)) / float64(time.Millisecond)

	method, path, query := "-", "-", "-"
	if req != nil {
		method = string(req.Method)
		path = req.Path
		if req.RawQuery != "" {
			query = req.RawQuery
		}
	}

	contentLength := int64(0)
	if cl, ok := resp.HeaderValue("Content-Length"); ok {
		contentLength = parseContentLengthHeader(cl)
	}

	bytesWritten := resp.BytesWritten()
	if req != nil && req.Method == request.MethodHEAD {
		bytesWritten = 0
	}

	if d.accessLog != nil {
		d.accessLog.Log(observability.AccessLogEntry{
			Remote:        remoteAddr(conn),
			Method:        method,
			Path:          path,
			Query:         query,
			Version:       resp.Version().String(),
			Status:        int(resp.StatusCode()),
			DurationMs:    durationMs,
			Bytes:         bytesWritten,
			ContentLength: contentLength,
			KeepAlive:     resp.IsConnectionPersistent(),
			RequestID:     requestID,
		})
	}

	if d.metrics != nil {
		metricsMethod := method
		if req == nil {
			metricsMethod = ""
		}
		d.metrics.RecordRequest(metricsMethod, int(resp.StatusCode()), durationMs, bytesWritten)
	}
}

func remoteAddr(conn net.Conn) string {
	if conn.RemoteAddr() == nil {
		return "-"
	}
	return conn.RemoteAddr().String()
}

func parseContentLengthHeader(v string) int64 {
	var n int64
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
