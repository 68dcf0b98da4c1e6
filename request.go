package httpclient

import (
	"fmt"
	"time"

	"github.com/yinglunfeng/esa-httpclient/header"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// Request, and everything it is built from, is defined in package model so
// the internal writer/pipeline/pool packages can serialize one without
// importing this package (which imports them). Aliased here so callers
// only ever need to import "httpclient".
type (
	Request   = model.Request
	Body      = model.Body
	Part      = model.Part
	Type      = model.Type
	BodyKind  = model.BodyKind
	Overrides = model.Overrides
	Endpoint  = model.Endpoint
)

const (
	TypePlain          = model.TypePlain
	TypeChunked        = model.TypeChunked
	TypeFile           = model.TypeFile
	TypeMultipart      = model.TypeMultipart
	TypeFormURLEncoded = model.TypeFormURLEncoded

	BodyNone           = model.BodyNone
	BodyBytes          = model.BodyBytes
	BodyFile           = model.BodyFile
	BodyMultipart      = model.BodyMultipart
	BodyFormURLEncoded = model.BodyFormURLEncoded
	BodyChunkStream    = model.BodyChunkStream
)

// RequestBuilder is the fluent request-building API (spec.md §1).
type RequestBuilder struct {
	req *Request
}

// NewRequest starts building a request for method/scheme/host/port/path.
func NewRequest(method, scheme, host string, port int, path string) *RequestBuilder {
	return &RequestBuilder{req: &Request{
		Method: method,
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Header: header.New(),
	}}
}

func (b *RequestBuilder) Query(q string) *RequestBuilder {
	b.req.Query = q
	return b
}

func (b *RequestBuilder) SetHeader(key, value string) *RequestBuilder {
	b.req.Header.Set(key, value)
	return b
}

func (b *RequestBuilder) AddHeader(key, value string) *RequestBuilder {
	b.req.Header.Add(key, value)
	return b
}

func (b *RequestBuilder) Body(bytes []byte) *RequestBuilder {
	b.req.Type = TypePlain
	b.req.Body = Body{Kind: BodyBytes, Bytes: bytes}
	return b
}

func (b *RequestBuilder) File(path string) *RequestBuilder {
	b.req.Type = TypeFile
	b.req.Body = Body{Kind: BodyFile, Path: path}
	return b
}

// Chunked marks the request to be written with Transfer-Encoding: chunked
// (HTTP/1) or un-terminated DATA frames (HTTP/2); the caller obtains a
// ChunkWriter from the Context (spec.md §4.6) to stream bytes.
func (b *RequestBuilder) Chunked() *RequestBuilder {
	b.req.Type = TypeChunked
	b.req.Body = Body{Kind: BodyChunkStream}
	return b
}

// MultipartFile adds a file part. The body becomes multipart/form-data
// unless MultipartEncoding(false) is called afterwards.
func (b *RequestBuilder) MultipartFile(name, filename, path, contentType string) *RequestBuilder {
	b.req.Type = TypeMultipart
	b.req.Body.Kind = BodyMultipart
	b.req.Body.Parts = append(b.req.Body.Parts, Part{Name: name, Filename: filename, FilePath: path, ContentType: contentType})
	return b
}

func (b *RequestBuilder) Attr(key, value string) *RequestBuilder {
	if b.req.Body.Attrs == nil {
		b.req.Body.Attrs = map[string][]string{}
	}
	b.req.Body.Attrs[key] = append(b.req.Body.Attrs[key], value)
	return b
}

// MultipartEncoding chooses between a multipart/form-data envelope (true,
// the default once any part/attr is present) and a flat
// application/x-www-form-urlencoded body (false) — spec.md §8 scenario 2.
func (b *RequestBuilder) MultipartEncoding(multipart bool) *RequestBuilder {
	if multipart {
		b.req.Type = TypeMultipart
		b.req.Body.Kind = BodyMultipart
	} else {
		b.req.Type = TypeFormURLEncoded
		b.req.Body.Kind = BodyFormURLEncoded
	}
	return b
}

func (b *RequestBuilder) ReadTimeout(d time.Duration) *RequestBuilder {
	b.req.Overrides.ReadTimeout = d
	return b
}

func (b *RequestBuilder) MaxRedirects(n int) *RequestBuilder {
	b.req.Overrides.MaxRedirects = n
	return b
}

func (b *RequestBuilder) ExpectContinue(enabled bool) *RequestBuilder {
	b.req.Overrides.ExpectContinueEnabled = enabled
	return b
}

func (b *RequestBuilder) URIEncode(enabled bool) *RequestBuilder {
	b.req.Overrides.URIEncode = enabled
	return b
}

// Build finalizes and returns the immutable Request.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.req.Method == "" {
		return nil, fmt.Errorf("esa-httpclient: request method is required")
	}
	if b.req.Host == "" {
		return nil, fmt.Errorf("esa-httpclient: request host is required")
	}
	return b.req, nil
}
