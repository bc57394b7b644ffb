package request

import (
	"bufio"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"originserver/internal/headers"
)

// Limits bounds the DoS-sensitive dimensions of a request (spec §4.2 and
// §6's configuration-surface table).
type Limits struct {
	MaxRequestLine   int // bytes, excluding CRLF
	MaxHeaderSection int // bytes, including each header line's CRLF
	MaxHeaders       int // field count
	MaxBody          int // bytes, applies to both Content-Length and decoded chunked bodies
}

// DefaultLimits mirrors the defaults in spec §6.
var DefaultLimits = Limits{
	MaxRequestLine:   8192,
	MaxHeaderSection: 8192,
	MaxHeaders:       100,
	MaxBody:          10 * 1024 * 1024,
}

// Parser holds only immutable limits after construction and may be shared
// across every connection worker (spec §5).
type Parser struct {
	limits Limits
}

// New constructs a Parser with the given limits.
func New(limits Limits) *Parser {
	return &Parser{limits: limits}
}

// Parse reads one full request from br, which must be the same buffered
// reader reused across every iteration of one connection so that
// pipelined bytes are never stranded (spec §4.5 "Setup").
//
// It returns (nil, nil) only on a graceful EOF before the first byte of
// the request line — any other EOF is surfaced as a *ParseError wrapping
// BadRequest.
func (p *Parser) Parse(br *bufio.Reader) (*Request, error) {
	line, eof, err := readLine(br, p.limits.MaxRequestLine)
	if eof {
		return nil, nil
	}
	if err == errLineTooLong {
		return nil, errRequestLineTooLong()
	}
	if err == io.ErrUnexpectedEOF {
		return nil, errTruncatedStartLine()
	}
	if err == errLoneCR {
		return nil, errMalformedRequestLine()
	}
	if err != nil {
		// A raw transport error (read timeout, reset, ...) rather than a
		// malformed line: let the Driver see it unwrapped so it can emit
		// the synthetic timeout/abort handling of spec §4.5 step 4 instead
		// of a parse-error response.
		return nil, err
	}

	method, target, version, perr := parseRequestLine(line)
	if perr != nil {
		return nil, perr
	}

	req := &Request{
		Method:  method,
		Target:  target,
		Version: version,
		Headers: headers.New(),
	}
	req.Path, req.RawQuery, req.Query = splitTarget(target)

	if err := p.parseHeaders(br, req); err != nil {
		return nil, err
	}

	if req.Version == HTTP11 && !req.Headers.Has("Host") {
		return nil, errMissingHost()
	}

	if err := p.parseBody(br, req); err != nil {
		return nil, err
	}

	return req, nil
}

// parseRequestLine validates "METHOD SP TARGET SP VERSION" per spec §4.2.
func parseRequestLine(line []byte) (Method, string, Version, error) {
	s := string(line)

	parts := strings.Split(s, " ")
	if len(parts) != 3 {
		return "", "", 0, errMalformedRequestLine()
	}
	rawMethod, target, rawVersion := parts[0], parts[1], parts[2]

	if target == "" {
		return "", "", 0, errMissingTarget()
	}

	method, ok := knownMethods[strings.ToUpper(rawMethod)]
	if !ok {
		return "", "", 0, errUnsupportedMethod()
	}

	version, ok := versionByWire[rawVersion]
	if !ok {
		return "", "", 0, errUnsupportedVersion()
	}

	return method, target, version, nil
}

// splitTarget derives Path (left undecoded, per spec §4.4/§9) and the
// decoded QueryParams from a raw request-target.
func splitTarget(target string) (string, string, QueryParams) {
	rawPath := target
	rawQuery := ""
	if i := strings.IndexByte(target, '?'); i >= 0 {
		rawPath = target[:i]
		rawQuery = target[i+1:]
	}

	path := stripAbsoluteForm(rawPath)
	return path, rawQuery, parseQuery(rawQuery)
}

// stripAbsoluteForm reduces an absolute-form target ("http://host/path") to
// its path component, preserved bit-for-bit (no further decoding), and
// without normalizing an authority-only target to "/" (spec §9, Open
// Question "Absolute-form request targets", behavior preserved as-is).
func stripAbsoluteForm(rawPath string) string {
	lower := strings.ToLower(rawPath)
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			rest := rawPath[len(scheme):]
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				return rest[i:]
			}
			return ""
		}
	}
	return rawPath
}

// parseQuery percent-decodes "a=1&b=2" into an ordered, last-write-wins
// QueryParams (SPEC_FULL §3 expansion). A key with no '=' maps to "".
func parseQuery(rawQuery string) QueryParams {
	q := newQueryParams()
	if rawQuery == "" {
		return q
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		dk, err := url.QueryUnescape(k)
		if err != nil {
			dk = k
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			dv = v
		}
		q.set(dk, dv)
	}
	return q
}

// parseHeaders consumes header lines up to the terminating blank line,
// enforcing the running byte and field-count totals of spec §4.2.
func (p *Parser) parseHeaders(br *bufio.Reader, req *Request) error {
	total := 0
	count := 0
	for {
		budget := p.limits.MaxHeaderSection - total
		if budget < 0 {
			budget = 0
		}
		line, eof, err := readLine(br, budget)
		if eof || err == io.ErrUnexpectedEOF {
			return errTruncatedHeaders()
		}
		if err == errLineTooLong {
			return errHeaderSectionTooLarge()
		}
		if err == errLoneCR {
			return errMalformedHeaderLine()
		}
		if err != nil {
			return err
		}

		total += len(line) + 2 // + CRLF
		if total > p.limits.MaxHeaderSection {
			return errHeaderSectionTooLarge()
		}

		if len(line) == 0 {
			return nil // blank line: end of header section
		}

		count++
		if count > p.limits.MaxHeaders {
			return errTooManyHeaders()
		}

		name, value, err := parseHeaderLine(line)
		if err != nil {
			return err
		}
		req.Headers.Set(name, value)
	}
}

func parseHeaderLine(line []byte) (string, string, error) {
	colon := indexByte(line, ':')
	if colon <= 0 {
		return "", "", errMalformedHeaderLine()
	}
	name := string(line[:colon])
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", errMalformedHeaderLine()
	}
	value := strings.Trim(string(line[colon+1:]), " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", errMalformedHeaderLine()
	}
	return name, value, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// parseBody dispatches to chunked decoding or a fixed Content-Length read,
// or leaves Body empty, per spec §4.2.
func (p *Parser) parseBody(br *bufio.Reader, req *Request) error {
	te := strings.ToLower(strings.TrimSpace(req.Headers.Value("Transfer-Encoding")))
	clRaw, hasCL := req.Headers.Get("Content-Length")

	chunked := te == "chunked"
	if chunked && hasCL {
		// spec §9, Open Question decided: reject rather than let chunked
		// silently win.
		return errAmbiguousFraming()
	}

	if chunked {
		body, err := decodeChunkedBody(br, p.limits.MaxBody)
		if err != nil {
			return err
		}
		req.Body = body
		return nil
	}

	if !hasCL {
		req.Body = nil
		return nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(clRaw), 10, 64)
	if err != nil || n < 0 {
		return errBadContentLength()
	}
	if n > int64(p.limits.MaxBody) {
		return errBodyTooLarge()
	}
	if n == 0 {
		req.Body = nil
		return nil
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return errTruncatedBody()
		}
		return err
	}
	req.Body = body
	return nil
}
