package request

import (
	"fmt"

	"github.com/pkg/errors"

	"originserver/internal/httpstatus"
)

// ParseError is returned by Parser.Parse for any malformed, oversize, or
// unsupported request (spec §7's taxonomy). Status is the code the
// Connection Driver must answer with; the error message is never sent to
// the client verbatim — the driver's generated error body carries a fixed,
// generic phrase per status (spec §7: "stack traces never leak into
// response bodies").
type ParseError struct {
	Status httpstatus.Code
	cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("request parse failed: %s: %v", e.Status.Reason(), e.cause)
}

func (e *ParseError) Unwrap() error {
	return e.cause
}

func newParseError(status httpstatus.Code, format string, args ...any) *ParseError {
	return &ParseError{
		Status: status,
		cause:  errors.Wrapf(fmt.Errorf(format, args...), "status=%d", int(status)),
	}
}

var (
	errMalformedRequestLine    = newParseErrorFactory(httpstatus.BadRequest, "malformed request line")
	errUnsupportedMethod       = newParseErrorFactory(httpstatus.NotImplemented, "unsupported method")
	errUnsupportedVersion      = newParseErrorFactory(httpstatus.HTTPVersionNotSupported, "unsupported http version")
	errRequestLineTooLong      = newParseErrorFactory(httpstatus.URITooLong, "request line exceeds configured limit")
	errMissingTarget           = newParseErrorFactory(httpstatus.BadRequest, "missing request target")
	errMalformedHeaderLine     = newParseErrorFactory(httpstatus.BadRequest, "malformed header line")
	errHeaderSectionTooLarge   = newParseErrorFactory(httpstatus.BadRequest, "header section exceeds configured limit")
	errTooManyHeaders          = newParseErrorFactory(httpstatus.BadRequest, "too many header fields")
	errMissingHost             = newParseErrorFactory(httpstatus.BadRequest, "HTTP/1.1 request missing Host header")
	errAmbiguousFraming        = newParseErrorFactory(httpstatus.BadRequest, "Content-Length and Transfer-Encoding: chunked both present")
	errBadContentLength        = newParseErrorFactory(httpstatus.BadRequest, "invalid Content-Length")
	errBodyTooLarge            = newParseErrorFactory(httpstatus.PayloadTooLarge, "body exceeds configured limit")
	errTruncatedBody           = newParseErrorFactory(httpstatus.BadRequest, "connection closed before full body received")
	errMalformedChunk          = newParseErrorFactory(httpstatus.BadRequest, "malformed chunked transfer encoding")
	errTruncatedStartLine      = newParseErrorFactory(httpstatus.BadRequest, "connection closed mid request-line")
	errTruncatedHeaders        = newParseErrorFactory(httpstatus.BadRequest, "connection closed mid headers")
)

// newParseErrorFactory returns a function producing a fresh *ParseError
// each call so that the wrapped cause's call-site context (via
// github.com/pkg/errors) reflects where the error actually occurred,
// rather than sharing one sentinel's frozen stack.
func newParseErrorFactory(status httpstatus.Code, msg string) func() *ParseError {
	return func() *ParseError {
		return newParseError(status, "%s", msg)
	}
}
