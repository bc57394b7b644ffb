// Package response implements the Response Builder (spec §4.3): a fluent,
// mutable value serialized exactly once, with lazy body streaming and a
// three-state connection directive the Connection Driver consults for its
// keep-alive decision.
package response

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"originserver/internal/headers"
	"originserver/internal/httpstatus"
	"originserver/internal/request"
)

// ServerIdent is the product token written into every response's Server
// header.
const ServerIdent = "originserver/1.0"

// Directive is the explicit connection-persistence decision a handler may
// stamp onto a Response, overriding the protocol default (spec §3/§4.3).
type Directive int

const (
	DirectiveUnset Directive = iota
	DirectivePersistent
	DirectiveClose
)

// BodySupplier opens a fresh readable byte stream over a response body
// when invoked. It is guaranteed closed after transfer, including on
// write errors (spec §9 "Lazy body streaming").
type BodySupplier func() (io.ReadCloser, error)

// Response is the mutable builder described in spec §4.3. It is owned by
// exactly one connection worker; Write* methods serialize it exactly
// once.
type Response struct {
	status    httpstatus.Code
	version   request.Version
	headers   headers.Headers
	inline    []byte
	supplier  BodySupplier
	directive Directive

	bytesWritten int64
}

// New returns a Response in its spec-mandated default state: status 200
// OK, version HTTP/1.1, headers seeded with Server, empty inline body,
// directive unset.
func New() *Response {
	r := &Response{
		status:  httpstatus.OK,
		version: request.HTTP11,
		headers: headers.New(),
	}
	r.headers.Set("Server", ServerIdent)
	return r
}

// Status sets the status code.
func (r *Response) Status(code httpstatus.Code) *Response {
	r.status = code
	return r
}

// StatusCode returns the currently set status code.
func (r *Response) StatusCode() httpstatus.Code { return r.status }

// SetVersion copies the request's version onto the response, as the
// Connection Driver does at write time (spec §4.5 step 7).
func (r *Response) SetVersion(v request.Version) *Response {
	r.version = v
	return r
}

func (r *Response) Version() request.Version { return r.version }

// HeaderValue returns the value stored for name, case-insensitively, and
// whether it was present. Exposed for callers (the Connection Driver,
// tests) that need to inspect a built response without reaching into its
// unexported header store.
func (r *Response) HeaderValue(name string) (string, bool) {
	return r.headers.Get(name)
}

// Header sets a header field. Setting "Connection" additionally marks the
// directive: a value equal to "close" (ignoring case and surrounding
// whitespace) marks DirectiveClose, any other value marks
// DirectivePersistent (spec §4.3).
func (r *Response) Header(name, value string) *Response {
	r.headers.Set(name, value)
	if strings.EqualFold(name, "Connection") {
		if strings.EqualFold(strings.TrimSpace(value), "close") {
			r.directive = DirectiveClose
		} else {
			r.directive = DirectivePersistent
		}
	}
	return r
}

// ContentType is a convenience wrapper over Header("Content-Type", v).
func (r *Response) ContentType(v string) *Response {
	return r.Header("Content-Type", v)
}

// Body sets an inline body, defensively copied, and sets Content-Length
// to its byte length. Any previously set body-supplier is cleared.
func (r *Response) Body(data []byte) *Response {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.inline = cp
	r.supplier = nil
	r.headers.Set("Content-Length", strconv.Itoa(len(cp)))
	return r
}

// BodyString is a convenience wrapper over Body([]byte(s)).
func (r *Response) BodyString(s string) *Response {
	return r.Body([]byte(s))
}

// BodyLength sets Content-Length without materializing a payload; must be
// paired with SetBodySupplier.
func (r *Response) BodyLength(n int64) *Response {
	r.headers.Set("Content-Length", strconv.FormatInt(n, 10))
	return r
}

// SetBodySupplier installs a deferred body producer, opened lazily at
// write time and guaranteed closed afterward. Clears any inline body.
func (r *Response) SetBodySupplier(f BodySupplier) *Response {
	r.supplier = f
	r.inline = nil
	return r
}

// KeepAlive stamps the connection-persistence decision following spec
// §4.3's version-dependent policy:
//   - HTTP/1.1: true removes any Connection header and resets the
//     directive to unset; false sets "Connection: close".
//   - HTTP/1.0: always writes an explicit Connection header, either
//     "keep-alive" or "close".
func (r *Response) KeepAlive(persist bool) *Response {
	if r.version == request.HTTP11 {
		if persist {
			r.headers.Delete("Connection")
			r.directive = DirectiveUnset
		} else {
			r.headers.Set("Connection", "close")
			r.directive = DirectiveClose
		}
		return r
	}
	if persist {
		r.headers.Set("Connection", "keep-alive")
		r.directive = DirectivePersistent
	} else {
		r.headers.Set("Connection", "close")
		r.directive = DirectiveClose
	}
	return r
}

// HasConnectionDirective reports whether a handler (or KeepAlive) has
// stamped an explicit connection directive.
func (r *Response) HasConnectionDirective() bool {
	return r.directive != DirectiveUnset
}

// IsConnectionPersistent returns the explicit directive when set,
// otherwise the version's protocol default (spec §4.3 "Queries").
func (r *Response) IsConnectionPersistent() bool {
	if r.directive != DirectiveUnset {
		return r.directive == DirectivePersistent
	}
	return r.version == request.HTTP11
}

// BytesWritten is the observable byte count from the most recent
// Write*Full/WriteHeadersOnly call: Content-Length for a full write, 0 for
// a headers-only write (spec §4.3 "Observable").
func (r *Response) BytesWritten() int64 { return r.bytesWritten }

var iso88591Encoder = charmap.ISO8859_1.NewEncoder()

// encodeLatin1 transcodes an already-ASCII string to ISO-8859-1 bytes per
// spec §4.3 ("All status-line and header bytes are written with
// ISO-8859-1 encoding"). For the ASCII-only strings this server ever
// constructs, the transcoding is an identity transform; it is applied
// explicitly rather than assumed so status/header output survives future
// Latin-1 high-byte header values bit-for-bit.
func encodeLatin1(s string) []byte {
	b, err := iso88591Encoder.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// WriteFull serializes the full response — status line, headers, blank
// line, body — to out, streaming the body from the supplier if one was
// set. The body source (if a supplier) is always closed, including on a
// write error.
func (r *Response) WriteFull(out io.Writer) error {
	bw := bufio.NewWriter(out)

	if err := r.writeStatusLine(bw); err != nil {
		return err
	}
	if err := r.writeHeaderLines(bw); err != nil {
		return err
	}

	n, err := r.writeBody(bw)
	r.bytesWritten = n
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteHeadersOnly serializes the status line, headers, and terminating
// blank line, with no body — used for HEAD responses (spec §4.3).
func (r *Response) WriteHeadersOnly(out io.Writer) error {
	bw := bufio.NewWriter(out)
	if err := r.writeStatusLine(bw); err != nil {
		return err
	}
	if err := r.writeHeaderLines(bw); err != nil {
		return err
	}
	r.bytesWritten = 0
	return bw.Flush()
}

func (r *Response) writeStatusLine(w io.Writer) error {
	line := r.version.String() + " " + strconv.Itoa(int(r.status)) + " " + r.status.Reason() + "\r\n"
	_, err := w.Write(encodeLatin1(line))
	return err
}

func (r *Response) writeHeaderLines(w io.Writer) error {
	for _, name := range r.headers.Names() {
		value, _ := r.headers.Get(name)
		line := name + ": " + value + "\r\n"
		if _, err := w.Write(encodeLatin1(line)); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

func (r *Response) writeBody(w io.Writer) (int64, error) {
	if r.supplier != nil {
		rc, err := r.supplier()
		if err != nil {
			return 0, err
		}
		defer rc.Close()
		n, err := io.Copy(w, rc)
		return n, err
	}
	if len(r.inline) == 0 {
		return 0, nil
	}
	n, err := w.Write(r.inline)
	return int64(n), err
}
