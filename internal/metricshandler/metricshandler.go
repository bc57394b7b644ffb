// Package metricshandler implements the /metrics JSON-serializing
// Handler referenced by spec §4.6/§6. Its internals are explicitly not
// prescribed by the core spec — only the stable JSON key names are — so
// this is a thin adapter over an observability.MetricsSink snapshot.
package metricshandler

import (
	"encoding/json"

	"originserver/internal/httpstatus"
	"originserver/internal/observability"
	"originserver/internal/request"
	"originserver/internal/response"
)

// Handler serves a JSON snapshot of a metrics sink's current totals.
type Handler struct {
	sink observability.MetricsSink
}

// New returns a Handler reading from sink.
func New(sink observability.MetricsSink) *Handler {
	return &Handler{sink: sink}
}

// Handle implements handler.Handler. Non-GET/HEAD requests are rejected
// the same way the File Handler rejects them, for consistency across the
// server's two fixed endpoints.
func (h *Handler) Handle(req *request.Request) *response.Response {
	if req.Method != request.MethodGET && req.Method != request.MethodHEAD {
		return response.MethodNotAllowed("GET, HEAD")
	}

	body, err := json.Marshal(h.sink.Snapshot())
	if err != nil {
		return response.InternalServerError()
	}

	return response.New().
		Status(httpstatus.OK).
		ContentType("application/json; charset=UTF-8").
		Body(body)
}
