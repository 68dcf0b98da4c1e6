package selector

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	addr net.Addr
	err  error
}

func (s stubResolver) Resolve(context.Context, string, int) (net.Addr, error) {
	return s.addr, s.err
}

func TestSelectSuccess(t *testing.T) {
	want := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 80}
	addr, err := Select(context.Background(), stubResolver{addr: want}, "127.0.0.1", 80)
	require.NoError(t, err)
	assert.Equal(t, want, addr)
}

func TestSelectFailureWrapsUnresolvedHost(t *testing.T) {
	_, err := Select(context.Background(), stubResolver{err: errors.New("boom")}, "bad.invalid", 80)
	var unresolved ErrUnresolvedHost
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "bad.invalid", unresolved.Host)
}
