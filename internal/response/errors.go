package response

import (
	"fmt"
	"html"

	"originserver/internal/httpstatus"
)

// errorPage renders the minimal HTML error body of spec §4.3/§7: the
// status code, reason phrase, and an HTML-escaped message. Escaping
// prevents any interpolated error text — including messages built from
// request data — from breaking out of the page.
func errorPage(code httpstatus.Code, message string) string {
	return fmt.Sprintf(
		"<html><head><title>%d %s</title></head><body><h1>%d %s</h1><p>%s</p></body></html>",
		int(code), code.Reason(), int(code), code.Reason(), html.EscapeString(message),
	)
}

func newErrorResponse(code httpstatus.Code, message string) *Response {
	r := New()
	r.Status(code)
	r.ContentType("text/html; charset=UTF-8")
	r.BodyString(errorPage(code, message))
	r.directive = DirectiveClose
	return r
}

// NotFound builds the canonical 404 response (spec §4.3 factory
// constructors).
func NotFound() *Response {
	return newErrorResponse(httpstatus.NotFound, "The requested resource was not found on this server.")
}

// MethodNotAllowed builds the canonical 405 response, additionally setting
// Allow to the comma-separated list of methods the resource does accept.
func MethodNotAllowed(allowed string) *Response {
	r := newErrorResponse(httpstatus.MethodNotAllowed, "The requested method is not allowed for this resource.")
	r.Header("Allow", allowed)
	return r
}

// InternalServerError builds the canonical 500 response. The message is
// always a fixed, generic phrase — internal error detail is never
// interpolated here (spec §7: "stack traces never leak into response
// bodies").
func InternalServerError() *Response {
	return newErrorResponse(httpstatus.InternalServerError, "The server encountered an unexpected condition.")
}

// Error builds an arbitrary status/message error response, HTML-escaping
// message. Used by the Connection Driver for parser-reported statuses
// (BadRequest, PayloadTooLarge, URITooLong, NotImplemented,
// HTTPVersionNotSupported).
func Error(code httpstatus.Code, message string) *Response {
	return newErrorResponse(code, message)
}
