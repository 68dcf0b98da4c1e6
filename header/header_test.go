package header

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPreserved(t *testing.T) {
	h := New()
	h.Set("Zebra", "1")
	h.Set("content-type", "text/plain")
	h.Add("Accept", "*/*")

	assert.Equal(t, []string{"Zebra", "Content-Type", "Accept"}, h.Keys())
}

func TestCaseInsensitiveGet(t *testing.T) {
	h := New()
	h.Set("Content-Type", "application/json")
	assert.Equal(t, "application/json", h.Get("content-TYPE"))
}

func TestAddAppends(t *testing.T) {
	h := New()
	h.Add("X-Multi", "a")
	h.Add("x-multi", "b")
	assert.Equal(t, []string{"a", "b"}, h.Values("X-Multi"))
}

func TestDelTombstones(t *testing.T) {
	h := New()
	h.Set("Host", "example.com")
	h.Set("Content-Type", "text/plain")
	h.Del("Host")

	assert.False(t, h.Has("Host"))
	assert.Equal(t, []string{"Content-Type"}, h.Keys())
}

func TestWriteWireForm(t *testing.T) {
	h := New()
	h.Set("Host", "127.0.0.1")
	h.Add("Accept", "*/*")

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, "Host: 127.0.0.1\r\nAccept: */*\r\n", buf.String())
}

func TestStandardHeadersStripsPseudo(t *testing.T) {
	h := New()
	h.Set(":method", "POST")
	h.Set(":authority", "127.0.0.1")
	h.Set("Content-Type", "multipart/form-data")

	out := StandardHeaders(h)
	assert.False(t, out.Has(":method"))
	assert.False(t, out.Has(":authority"))
	assert.Equal(t, "multipart/form-data", out.Get("Content-Type"))
}

func TestClonePreservesOrderAndIsIndependent(t *testing.T) {
	h := New()
	h.Set("A", "1")
	h.Set("B", "2")
	c := h.Clone()
	c.Set("A", "changed")

	assert.Equal(t, "1", h.Get("A"))
	assert.Equal(t, "changed", c.Get("A"))
	assert.Equal(t, []string{"A", "B"}, c.Keys())
}
