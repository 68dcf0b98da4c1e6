package httpclient

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yinglunfeng/esa-httpclient/internal/pipeline"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/selector"
	"github.com/yinglunfeng/esa-httpclient/internal/timer"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// Config collects the Transceiver's tunables, the subset of spec.md §6's
// builder surface that the core (as opposed to the interceptor chain)
// consumes directly.
type Config struct {
	Resolver            selector.Resolver
	PoolOptions         pool.Options
	PoolOptionsProvider pool.OptionsProvider
	ConnectTimeout      time.Duration
	HandshakeTimeout    time.Duration
	ReadTimeout         time.Duration
	KeepAlive           bool
	Version             pipeline.Version
	H2ClearTextUpgrade  bool
	TLSConfig           *tls.Config

	// MaxResponseHeaderBytes bounds the HTTP/1 response header block read
	// from the wire (spec.md §6 http1Options); 0 uses bufio's own default.
	MaxResponseHeaderBytes int
}

func (cfg Config) effectiveHandshakeTimeout() time.Duration {
	if cfg.HandshakeTimeout > 0 {
		return cfg.HandshakeTimeout
	}
	return cfg.ConnectTimeout
}

func (cfg Config) pipelineVersion() pipeline.Version {
	if cfg.H2ClearTextUpgrade && cfg.Version != pipeline.HTTP1_0 && cfg.Version != pipeline.HTTP1_1 {
		return pipeline.HTTP2ClearText
	}
	return cfg.Version
}

// Transceiver is C8: the orchestrator threading C1-C7 into one request
// lifecycle (spec.md §4.8). One instance is shared by every request a
// Client issues.
type Transceiver struct {
	cfg   Config
	pool  *pool.Pool
	wheel *timer.Wheel
	log   zerolog.Logger
}

// NewTransceiver wires C1 (selector, via cfg.Resolver), C4 (the pool,
// dialing through C5's pipeline.Dial) and C3 (the process-wide timer)
// together. metrics may be nil to use a private, throwaway registry.
func NewTransceiver(cfg Config, wheel *timer.Wheel, log zerolog.Logger, metrics prometheus.Registerer) *Transceiver {
	t := &Transceiver{cfg: cfg, wheel: wheel, log: log}
	dial := func(ctx context.Context, ep model.Endpoint) (pool.Conn, error) {
		addr, err := selector.Select(ctx, cfg.Resolver, ep.Host, ep.Port)
		if err != nil {
			return nil, err
		}
		return pipeline.Dial(ctx, addr, ep, pipeline.Config{
			Version:          cfg.pipelineVersion(),
			TLSConfig:        cfg.TLSConfig,
			DialTimeout:      cfg.ConnectTimeout,
			HandshakeTimeout: cfg.effectiveHandshakeTimeout(),
		})
	}
	t.pool = pool.New(dial, cfg.PoolOptions, cfg.PoolOptionsProvider, log, metrics)
	return t
}
