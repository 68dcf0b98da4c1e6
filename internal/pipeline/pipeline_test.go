package pipeline

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinglunfeng/esa-httpclient/model"
)

func TestDialPlaintextYieldsHTTP1Conn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			<-context.Background().Done()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ep := model.Endpoint{Scheme: "http", Host: "127.0.0.1", Port: addr.Port}

	conn, err := Dial(context.Background(), addr, ep, Config{Version: HTTP1_1, DialTimeout: time.Second})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, ep, conn.Endpoint())
	assert.True(t, conn.Active())
	assert.True(t, conn.Writable())

	h1, ok := conn.(*h1Conn)
	require.True(t, ok)
	assert.NotNil(t, h1.Raw())
}

func TestDialConnectionRefusedWrapsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing listening now

	ep := model.Endpoint{Scheme: "http", Host: "127.0.0.1", Port: addr.Port}
	_, err = Dial(context.Background(), addr, ep, Config{Version: HTTP1_1, DialTimeout: time.Second})
	require.Error(t, err)
}

func TestH1ConnMarkDeadStopsActive(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			<-context.Background().Done()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ep := model.Endpoint{Scheme: "http", Host: "127.0.0.1", Port: addr.Port}
	conn, err := Dial(context.Background(), addr, ep, Config{Version: HTTP1_1, DialTimeout: time.Second})
	require.NoError(t, err)
	defer conn.Close()

	h1 := conn.(*h1Conn)
	h1.MarkDead()
	assert.False(t, conn.Active())
}
