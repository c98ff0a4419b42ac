package offline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Fetcher performs the network leg of a fetch.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Host":                true,
	"Content-Length":      true,
}

// HTTPFetcher fetches from the network with a fasthttp client. Responses from
// origin are typed basic, everything else cors or opaque.
type HTTPFetcher struct {
	client  *fasthttp.Client
	origin  *url.URL
	timeout time.Duration
}

func NewHTTPFetcher(origin *url.URL, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client: &fasthttp.Client{
			Name:                     "naughtyden-edge",
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			MaxIdleConnDuration:      time.Minute,
			NoDefaultUserAgentHeader: true,
			DisablePathNormalizing:   true,
		},
		origin:  origin,
		timeout: timeout,
	}
}

func (f *HTTPFetcher) sameOrigin(u *url.URL) bool {
	return f.origin != nil && strings.EqualFold(u.Scheme, f.origin.Scheme) && strings.EqualFold(u.Host, f.origin.Host)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL.String())
	req.Header.SetMethod(r.Method)
	for k, vs := range r.Header {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > f.timeout {
		deadline = time.Now().Add(f.timeout)
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		if err == fasthttp.ErrTimeout {
			return nil, fmt.Errorf("fetch %s: %w", r.URL, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("fetch %s: %w", r.URL, err)
	}

	out := &Response{
		Status: resp.StatusCode(),
		Header: http.Header{},
		Body:   append([]byte(nil), resp.Body()...),
	}
	resp.Header.VisitAll(func(k, v []byte) {
		key := string(k)
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			return
		}
		out.Header.Add(key, string(v))
	})
	switch {
	case f.sameOrigin(r.URL):
		out.Type = TypeBasic
	case r.Mode == ModeNoCORS:
		out.Type = TypeOpaque
	default:
		out.Type = TypeCORS
	}
	return out, nil
}
