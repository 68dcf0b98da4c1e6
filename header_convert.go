package httpclient

import (
	"net/http"

	"github.com/yinglunfeng/esa-httpclient/header"
)

// toHTTPHeader copies h into the net/http representation the HTTP/2
// transport's *http.Request expects. Used only at the pipeline boundary;
// the core otherwise works exclusively with the order-preserving header
// package.
func toHTTPHeader(h *header.Header) http.Header {
	out := make(http.Header)
	for _, k := range h.Keys() {
		out[k] = append([]string(nil), h.Values(k)...)
	}
	return out
}

// fromHTTPHeader is the inverse, used to turn a received *http.Response's
// header set (HTTP/1 via http.ReadResponse, or HTTP/2 via ClientConn's
// RoundTrip) back into our order-preserving Header.
func fromHTTPHeader(hh http.Header) *header.Header {
	out := header.New()
	for k, values := range hh {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}
