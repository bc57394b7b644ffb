package handler

import (
	"originserver/internal/request"
	"originserver/internal/response"
)

// Router is the server's only routing decision (spec §1 Non-goals: "no
// request routing beyond two fixed handlers"): an exact-match on the
// configured metrics endpoint path, falling through to the file handler
// for everything else.
type Router struct {
	metricsPath    string
	metricsHandler Handler
	fileHandler    Handler
}

// NewRouter returns a Router matching metricsPath before resolving
// anything else against fileHandler.
func NewRouter(metricsPath string, metricsHandler, fileHandler Handler) *Router {
	return &Router{
		metricsPath:    metricsPath,
		metricsHandler: metricsHandler,
		fileHandler:    fileHandler,
	}
}

// Handle implements Handler.
func (r *Router) Handle(req *request.Request) *response.Response {
	if r.metricsPath != "" && req.Path == r.metricsPath {
		return r.metricsHandler.Handle(req)
	}
	return r.fileHandler.Handle(req)
}
