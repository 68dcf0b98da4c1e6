package interceptor

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// redirectInterceptor follows 3xx Location responses up to
// req.Overrides.MaxRedirects times (spec.md §3 per-request override
// "max-redirects"), re-issuing the request against the new host/path. A
// request that leaves the override at its zero value falls back to the
// builder's maxRedirects (spec.md §6).
type redirectInterceptor struct {
	builderDefault int
}

// NewRedirect builds the Redirect interceptor. builderDefault is the
// builder-level maxRedirects option, used when a request's own
// Overrides.MaxRedirects is unset.
func NewRedirect(builderDefault int) Interceptor { return &redirectInterceptor{builderDefault: builderDefault} }

func (r *redirectInterceptor) Name() string { return "Redirect" }

func (r *redirectInterceptor) Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error) {
	max := req.Overrides.MaxRedirects
	if max <= 0 {
		max = r.builderDefault
	}

	current := req
	for i := 0; i < max; i++ {
		resp, err := chain.Proceed(ctx, current)
		if err != nil {
			return nil, err
		}
		if !isRedirectStatus(resp.StatusCode) {
			return resp, nil
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return resp, nil
		}
		next, err := redirectedRequest(current, loc)
		if err != nil {
			return resp, nil
		}
		current = next
	}
	return chain.Proceed(ctx, current)
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// redirectedRequest builds the next hop's request from a Location header,
// carrying over method, headers and body unchanged (redirect bodies are
// re-sent verbatim; spec.md names no redirect-specific body rewriting).
func redirectedRequest(req *model.Request, location string) (*model.Request, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}

	next := *req
	if u.IsAbs() {
		next.Scheme = u.Scheme
		next.Host = u.Hostname()
		if p := u.Port(); p != "" {
			if port, perr := strconv.Atoi(p); perr == nil {
				next.Port = port
			}
		} else if u.Scheme == "https" {
			next.Port = 443
		} else {
			next.Port = 80
		}
	}
	next.Path = u.Path
	next.Query = u.RawQuery
	return &next, nil
}
