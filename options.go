package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/yinglunfeng/esa-httpclient/interceptor"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
)

// NetOptions groups the socket-level tunables spec.md §6 lists as the
// builder's netOptions option.
type NetOptions struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	KeepAlive        bool
}

// Http1Options groups HTTP/1-specific tunables (spec.md §6 http1Options).
type Http1Options struct {
	// MaxResponseHeaderBytes bounds the response header block HTTP/1
	// reads before giving up (0 uses the writer/reader package default).
	MaxResponseHeaderBytes int64
}

// Http2Options groups HTTP/2-specific tunables (spec.md §6 http2Options).
type Http2Options struct {
	// AllowHTTP enables h2c (prior-knowledge HTTP/2 over plaintext).
	AllowHTTP bool
}

// RetryOptions is the builder's retryOptions option; a nil *RetryOptions
// passed to Builder.RetryOptions removes the Retry interceptor entirely
// (spec.md §6), shrinking the default 4-entry chain to 3.
type RetryOptions = interceptor.RetryOptions

// Decompression names the Content-Encoding the useDecompress option would
// apply (spec.md §6: `decompression ∈ {GZIP, DEFLATE, GZIP_DEFLATE}`).
// Actually decoding response bodies is an explicit Non-goal of the core
// wire reader (spec.md §1; the Response.Body stream is delivered as-is),
// so this is carried purely as the builder-surface knob spec.md names —
// there is no decode step that reads it.
type Decompression int

const (
	DecompressionGzip Decompression = iota
	DecompressionDeflate
	DecompressionGzipDeflate
)

// SSLOptions groups the TLS tunables spec.md §6 lists as sslOptions.
type SSLOptions struct {
	ServerName         string
	InsecureSkipVerify bool
	RootCAs            *x509.CertPool
	Certificates       []tls.Certificate
	MinVersion         uint16
}

// toTLSConfig builds the *tls.Config the pipeline dialer consumes. Nil
// receiver yields nil, meaning "plaintext" to pipeline.Dial.
func (o *SSLOptions) toTLSConfig() *tls.Config {
	if o == nil {
		return nil
	}
	return &tls.Config{
		ServerName:         o.ServerName,
		InsecureSkipVerify: o.InsecureSkipVerify,
		RootCAs:            o.RootCAs,
		Certificates:       o.Certificates,
		MinVersion:         o.MinVersion,
	}
}

func (o *SSLOptions) clone() *SSLOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.Certificates = append([]tls.Certificate{}, o.Certificates...)
	return &c
}

// ChannelPoolOptionsProvider lets callers override pool size / wait-queue
// length per endpoint (spec.md §6 channelPoolOptionsProvider).
type ChannelPoolOptionsProvider = pool.OptionsProvider

func cloneNetOptions(o *NetOptions) *NetOptions {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneHttp1Options(o *Http1Options) *Http1Options {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneHttp2Options(o *Http2Options) *Http2Options {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneRetryOptions(o *RetryOptions) *RetryOptions {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
