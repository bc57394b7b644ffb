package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersGetSetCaseInsensitive(t *testing.T) {
	h := New()
	h.Set("Host", "localhost:42069")
	v, ok := h.Get("host")
	require.True(t, ok)
	assert.Equal(t, "localhost:42069", v)

	v, ok = h.Get("HOST")
	require.True(t, ok)
	assert.Equal(t, "localhost:42069", v)
}

func TestHeadersOverwriteKeepsSize(t *testing.T) {
	h := New()
	h.Set("X-Person", "some1")
	h.Set("x-person", "some2")
	h.Set("X-PERSON", "some3")

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "some3", h.Value("X-Person"))
}

func TestHeadersOverwritePreservesOrder(t *testing.T) {
	h := New()
	h.Set("Host", "x")
	h.Set("Accept", "*/*")
	h.Set("host", "y") // overwrite, should not move to the end

	assert.Equal(t, []string{"Host", "Accept"}, h.Names())
	assert.Equal(t, "y", h.Value("Host"))
}

func TestHeadersNamesUniqueStableOrder(t *testing.T) {
	h := New()
	h.Set("Host", "localhost:42069")
	h.Set("X-Forward", "somethingdddd")
	h.Set("Accept", "*/*")

	assert.Equal(t, []string{"Host", "X-Forward", "Accept"}, h.Names())
}

func TestHeadersDeleteCaseInsensitive(t *testing.T) {
	h := New()
	h.Set("Vary", "Accept")
	h.Delete("vary")

	assert.False(t, h.Has("Vary"))
	assert.Equal(t, 0, h.Len())
}

func TestHeadersEmptyValueAllowed(t *testing.T) {
	h := New()
	h.Set("X-Empty", "")
	v, ok := h.Get("X-Empty")
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestHeadersCloneIsIndependent(t *testing.T) {
	h := New()
	h.Set("Host", "x")
	clone := h.Clone()
	clone.Set("Host", "y")

	assert.Equal(t, "x", h.Value("Host"))
	assert.Equal(t, "y", clone.Value("Host"))
}

func TestHeadersZeroValueUsable(t *testing.T) {
	var h Headers
	h.Set("Host", "x")
	assert.Equal(t, "x", h.Value("Host"))
}
