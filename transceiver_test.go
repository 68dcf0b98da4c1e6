package httpclient

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinglunfeng/esa-httpclient/internal/pipeline"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/timer"
)

func newTestTransceiver(t *testing.T, opts pool.Options) *Transceiver {
	t.Helper()
	cfg := Config{
		Version:        pipeline.HTTP1_1,
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		PoolOptions:    opts,
	}
	return NewTransceiver(cfg, timer.New(5*time.Millisecond, 64), zerolog.Nop(), nil)
}

// serveOnce accepts a single connection on ln, reads one HTTP/1 request,
// hands it to respond, and closes the connection once respond returns.
func serveOnce(t *testing.T, ln net.Listener, respond func(br *bufio.Reader, conn net.Conn)) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		respond(br, conn)
	}()
}

func TestSendHTTP1PlainRequestSucceeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveOnce(t, ln, func(br *bufio.Reader, conn net.Conn) {
		_, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"))
	})

	addr := ln.Addr().(*net.TCPAddr)
	tr := newTestTransceiver(t, pool.Options{MaxConns: 2})

	req := mustBuild(t, NewRequest("GET", "http", "127.0.0.1", addr.Port, "/").Body(nil))
	future := tr.Send(context.Background(), req, nil, nil)

	resp, err := future.Get()
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	body := make([]byte, 2)
	_, rerr := resp.Body.Read(body)
	require.NoError(t, rerr)
	assert.Equal(t, "ok", string(body))
}

func TestSendHTTP1ExpectContinueRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveOnce(t, ln, func(br *bufio.Reader, conn net.Conn) {
		_, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		conn.Write([]byte("HTTP/1.1 417 Expectation Failed\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
	})

	addr := ln.Addr().(*net.TCPAddr)
	tr := newTestTransceiver(t, pool.Options{MaxConns: 1})

	req := mustBuild(t, NewRequest("POST", "http", "127.0.0.1", addr.Port, "/").Body([]byte("payload")).ExpectContinue(true))
	future := tr.Send(context.Background(), req, nil, nil)

	resp, err := future.Get()
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 417, resp.StatusCode)
}

func TestSendPoolExhaustedSurfacesAsClientError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept the first connection but never reply, so the first request's
	// connection is held for the lifetime of the test.
	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		close(accepted)
		<-context.Background().Done()
	}()

	addr := ln.Addr().(*net.TCPAddr)
	tr := newTestTransceiver(t, pool.Options{MaxConns: 1, MaxWaitQueue: 0})

	req1 := mustBuild(t, NewRequest("GET", "http", "127.0.0.1", addr.Port, "/").Body(nil))
	future1 := tr.Send(context.Background(), req1, nil, nil)
	<-accepted

	req2 := mustBuild(t, NewRequest("GET", "http", "127.0.0.1", addr.Port, "/").Body(nil))
	future2 := tr.Send(context.Background(), req2, nil, nil)

	_, err = future2.Get()
	require.Error(t, err)
	ce, ok := err.(*ClientError)
	require.True(t, ok)
	assert.Equal(t, KindPoolExhausted, ce.Kind)

	future1.Cancel()
}

func TestSendCancelRacingHandlerCreationStillFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveOnce(t, ln, func(br *bufio.Reader, conn net.Conn) {
		<-context.Background().Done()
	})

	addr := ln.Addr().(*net.TCPAddr)
	tr := newTestTransceiver(t, pool.Options{MaxConns: 1})

	req := mustBuild(t, NewRequest("GET", "http", "127.0.0.1", addr.Port, "/").Body(nil))
	future := tr.Send(context.Background(), req, nil, nil)
	future.Cancel()

	_, err = future.Get()
	require.Error(t, err)
	ce, ok := err.(*ClientError)
	require.True(t, ok)
	assert.Equal(t, KindCancelled, ce.Kind)
}

func mustBuild(t *testing.T, b *RequestBuilder) *Request {
	t.Helper()
	req, err := b.Build()
	require.NoError(t, err)
	return req
}
