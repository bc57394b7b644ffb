package response

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"originserver/internal/httpstatus"
	"originserver/internal/request"
)

func TestResponseDefaults(t *testing.T) {
	r := New()
	assert.Equal(t, httpstatus.OK, r.StatusCode())
	assert.Equal(t, request.HTTP11, r.Version())
	server, ok := r.headers.Get("Server")
	require.True(t, ok)
	assert.Equal(t, ServerIdent, server)
	assert.False(t, r.HasConnectionDirective())
}

func TestResponseWriteFullInline(t *testing.T) {
	r := New().Status(httpstatus.OK).ContentType("text/plain").BodyString("hello")
	var buf bytes.Buffer
	require.NoError(t, r.WriteFull(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nhello"))
	assert.Equal(t, int64(5), r.BytesWritten())
}

func TestResponseWriteHeadersOnlyNoBody(t *testing.T) {
	r := New().BodyString("payload")
	var buf bytes.Buffer
	require.NoError(t, r.WriteHeadersOnly(&buf))

	out := buf.String()
	assert.NotContains(t, out, "payload")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
	assert.Equal(t, int64(0), r.BytesWritten())
}

func TestResponseBodySupplierStreamsAndCloses(t *testing.T) {
	closed := false
	rc := &closeTrackingReader{Reader: strings.NewReader("streamed"), onClose: func() { closed = true }}

	r := New().BodyLength(8).SetBodySupplier(func() (io.ReadCloser, error) {
		return rc, nil
	})

	var buf bytes.Buffer
	require.NoError(t, r.WriteFull(&buf))
	assert.True(t, closed)
	assert.True(t, strings.HasSuffix(buf.String(), "streamed"))
}

func TestKeepAliveHTTP11(t *testing.T) {
	r := New()
	r.KeepAlive(true)
	assert.False(t, r.HasConnectionDirective())
	assert.True(t, r.IsConnectionPersistent())

	r2 := New()
	r2.KeepAlive(false)
	assert.True(t, r2.HasConnectionDirective())
	assert.False(t, r2.IsConnectionPersistent())
	v, ok := r2.headers.Get("Connection")
	require.True(t, ok)
	assert.Equal(t, "close", v)
}

func TestKeepAliveHTTP10AlwaysExplicit(t *testing.T) {
	r := New().SetVersion(request.HTTP10)
	r.KeepAlive(true)
	v, ok := r.headers.Get("Connection")
	require.True(t, ok)
	assert.Equal(t, "keep-alive", v)
	assert.True(t, r.IsConnectionPersistent())
}

func TestDirectivePriorityOverridesProtocolDefault(t *testing.T) {
	r := New() // HTTP/1.1 default persistent
	r.Header("Connection", "close")
	assert.True(t, r.HasConnectionDirective())
	assert.False(t, r.IsConnectionPersistent())
}

func TestErrorFactoriesEscapeMessage(t *testing.T) {
	r := NotFound()
	var buf bytes.Buffer
	require.NoError(t, r.WriteFull(&buf))
	assert.Contains(t, buf.String(), "text/html; charset=UTF-8")
	assert.True(t, r.HasConnectionDirective())
	assert.False(t, r.IsConnectionPersistent())

	injected := Error(httpstatus.BadRequest, `<script>alert("x")</script>`)
	var buf2 bytes.Buffer
	require.NoError(t, injected.WriteFull(&buf2))
	assert.NotContains(t, buf2.String(), "<script>")
	assert.Contains(t, buf2.String(), "&lt;script&gt;")
}

func TestMethodNotAllowedSetsAllow(t *testing.T) {
	r := MethodNotAllowed("GET, HEAD")
	v, ok := r.headers.Get("Allow")
	require.True(t, ok)
	assert.Equal(t, "GET, HEAD", v)
}

type closeTrackingReader struct {
	*strings.Reader
	onClose func()
}

func (c *closeTrackingReader) Close() error {
	c.onClose()
	return nil
}
