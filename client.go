package httpclient

import (
	"context"
	"io"

	"github.com/yinglunfeng/esa-httpclient/interceptor"
)

// Client is a Builder's finished product: the Transceiver (C8) wrapped by
// the interceptor chain spec.md §6 describes. Construct one with
// NewBuilder()....Build().
type Client struct {
	t                 *Transceiver
	chain             *interceptor.List
	maxContentLength  int64
	uriEncodeEnabled  bool
}

// Interceptors returns a snapshot of the current chain (spec.md §6
// unmodifiableInterceptors()).
func (c *Client) Interceptors() []interceptor.Interceptor { return c.chain.Unmodifiable() }

// AddInterceptor appends a user interceptor after the default chain.
func (c *Client) AddInterceptor(i interceptor.Interceptor) { c.chain.Append(i) }

// Execute runs req through the interceptor chain and the core Transceiver,
// returning a Future exactly like Transceiver.Send: the interceptor chain
// is synchronous internally (Retry/Redirect must see one attempt's
// outcome before issuing the next), so Execute runs it on its own
// goroutine and resolves the returned Future from there.
func (c *Client) Execute(ctx context.Context, req *Request, listener Listener, rc *Context) *Future {
	if c.uriEncodeEnabled {
		req.Overrides.URIEncode = true
	}
	future := NewFuture(nil)
	terminal := func(ctx context.Context, req *Request) (*Response, error) {
		return c.t.Send(ctx, req, listener, rc).Get()
	}
	go func() {
		resp, err := interceptor.Execute(ctx, req, c.chain.Unmodifiable(), terminal)
		if err != nil {
			future.CompleteExceptionally(err)
			return
		}
		if c.maxContentLength > 0 && resp.Body != nil {
			resp.Body = capBody(resp.Body, c.maxContentLength)
		}
		future.Complete(resp)
	}()
	return future
}

// cappedBody truncates a response body to maxContentLength bytes (spec.md
// §6 maxContentLength); it reads at most that many bytes and closes the
// underlying stream only when the caller closes it (reaching the limit
// just ends the reads with io.EOF) — the connection has already delivered
// whatever bytes arrived, so truncation (not an error) is this cap's
// effect, matching maxContentLength's listing alongside purely advisory
// builder tunables rather than the error taxonomy in §7.
type cappedBody struct {
	r         io.Reader
	underlying io.Closer
}

func capBody(body io.ReadCloser, limit int64) io.ReadCloser {
	return &cappedBody{r: io.LimitReader(body, limit), underlying: body}
}

func (c *cappedBody) Read(p []byte) (int, error) { return c.r.Read(p) }
func (c *cappedBody) Close() error                { return c.underlying.Close() }
