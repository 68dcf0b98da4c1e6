// Package pipeline implements C5 from spec.md §4.5: turn a raw net.Conn
// into a protocol-ready pool.Conn, negotiating TLS+ALPN for https
// endpoints and installing either an HTTP/1 line-writer or an HTTP/2
// http2.ClientConn depending on what was negotiated (or configured, for
// cleartext h2c). Grounded on the ALPN dial/verify/NewClientConn sequence
// used throughout the retrieval pack's HTTP/2 client code (e.g. the
// tls.Client→HandshakeContext→http2.Transport.NewClientConn chain) and on
// golang.org/x/net/http2/h2c's prior-knowledge posture for cleartext
// HTTP/2 (see h2c.go).
package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/http2"

	"github.com/yinglunfeng/esa-httpclient/internal/affinity"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/registry"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// Version is the protocol the caller asked the Builder for (spec.md §6).
type Version int

const (
	// Auto negotiates via ALPN for https, and otherwise uses HTTP/1.1.
	Auto Version = iota
	HTTP1_0
	HTTP1_1
	HTTP2
	// HTTP2ClearText forces h2c prior-knowledge over a plaintext socket.
	HTTP2ClearText
)

// Config configures one endpoint's pipeline construction (spec.md §6's
// per-request/per-client TLS and version options).
type Config struct {
	Version         Version
	TLSConfig       *tls.Config // cloned per dial; InsecureSkipVerify etc. flow from here
	DialTimeout     time.Duration
	HandshakeTimeout time.Duration
}

// Dial opens a TCP connection to addr and returns a pool.Conn wrapping it
// with the negotiated protocol's pipeline installed. addr is the already
// resolved network address (C1 has run); ep is kept for Conn.Endpoint().
func Dial(ctx context.Context, addr net.Addr, ep model.Endpoint, cfg Config) (pool.Conn, error) {
	d := &net.Dialer{Timeout: cfg.DialTimeout}
	raw, err := d.DialContext(ctx, addr.Network(), addr.String())
	if err != nil {
		return nil, fmt.Errorf("pipeline: dial %s: %w", ep, err)
	}

	if !ep.IsTLS() {
		if cfg.Version == HTTP2ClearText {
			return newH2Conn(ctx, raw, ep, cfg, true)
		}
		return newH1Conn(raw, ep, versionOrDefault(cfg.Version)), nil
	}

	tlsConf := cfg.TLSConfig.Clone()
	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	if tlsConf.ServerName == "" {
		tlsConf.ServerName = ep.Host
	}
	if cfg.Version == HTTP1_0 || cfg.Version == HTTP1_1 {
		tlsConf.NextProtos = []string{"http/1.1"}
	} else {
		tlsConf.NextProtos = []string{"h2", "http/1.1"}
	}

	tlsConn := tls.Client(raw, tlsConf)
	hctx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("pipeline: tls handshake with %s: %w", ep, err)
	}

	if tlsConn.ConnectionState().NegotiatedProtocol == "h2" {
		return newH2Conn(ctx, tlsConn, ep, cfg, false)
	}
	return newH1Conn(tlsConn, ep, versionOrDefault(cfg.Version)), nil
}

func versionOrDefault(v Version) Version {
	if v == Auto || v == HTTP2 || v == HTTP2ClearText {
		return HTTP1_1
	}
	return v
}

// newH2Conn wraps conn (already at the point a client preface can be
// sent — either straight after TCP connect for h2c prior-knowledge, or
// after a successful "h2" ALPN handshake) in an http2.ClientConn.
func newH2Conn(ctx context.Context, conn net.Conn, ep model.Endpoint, cfg Config, clearText bool) (pool.Conn, error) {
	t := &http2.Transport{AllowHTTP: clearText}
	cc, err := t.NewClientConn(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("pipeline: h2 client conn for %s: %w", ep, err)
	}
	return &h2Conn{cc: cc, raw: conn, ep: ep, reg: registry.NewHTTP2(), worker: affinity.NewWorker()}, nil
}

func newH1Conn(conn net.Conn, ep model.Endpoint, version Version) *h1Conn {
	return &h1Conn{conn: conn, ep: ep, version: version, reg: registry.NewHTTP1(), active: 1, worker: affinity.NewWorker()}
}
