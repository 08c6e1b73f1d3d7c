package avrix

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avrix-dev/avrix-sdk/netutil"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware is a function that wraps a RoundTripper to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next http.RoundTripper) http.RoundTripper {
//	    return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
//	        start := time.Now()
//	        defer func() { log.Printf("%s took %s", req.URL, time.Since(start)) }()
//	        return next.RoundTrip(req)
//	    })
//	}
type Middleware func(next http.RoundTripper) http.RoundTripper

// Chain wraps base with mw so that mw[0] is the outermost layer.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mw) - 1; i >= 0; i-- {
		rt = mw[i](rt)
	}
	return rt
}

// UserAgentMiddleware returns a middleware that adds a User-Agent header
// unless the request already carries one.
func UserAgentMiddleware(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("User-Agent") == "" {
				req = req.Clone(req.Context())
				req.Header.Set("User-Agent", userAgent)
			}
			return next.RoundTrip(req)
		})
	}
}

// BearerTokenMiddleware returns a middleware that authenticates requests
// with "Authorization: Bearer <token>".
//
// With hosts, only requests to one of them (host or host:port, case
// insensitive) carry the token. Without hosts, the token is limited to the
// host of the request that started the redirect chain.
func BearerTokenMiddleware(token string, hosts ...string) Middleware {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = struct{}{}
		}
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") == "" && tokenAllowed(req, allowed) {
				req = req.Clone(req.Context())
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return next.RoundTrip(req)
		})
	}
}

func tokenAllowed(req *http.Request, allowed map[string]struct{}) bool {
	host := strings.ToLower(req.URL.Host)
	if len(allowed) > 0 {
		if _, ok := allowed[host]; ok {
			return true
		}
		_, ok := allowed[strings.ToLower(req.URL.Hostname())]
		return ok
	}
	return host == strings.ToLower(originHost(req))
}

// originHost walks back through redirects to the first request's host.
func originHost(req *http.Request) string {
	for req.Response != nil && req.Response.Request != nil {
		req = req.Response.Request
	}
	return req.URL.Host
}

// PanicRecoveryMiddleware returns a middleware that converts a panicking
// transport into an ordinary request error.
func PanicRecoveryMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (resp *http.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = fmt.Errorf("transport panic: %v", r)
				}
			}()
			return next.RoundTrip(req)
		})
	}
}

// LoggingMiddleware returns a middleware that logs every request at debug level.
// Credentials embedded in the URL are stripped.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			url := netutil.StripCredentials(req.URL.String())
			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.Debug("http request failed", "method", req.Method, "url", url, "error", err)
				return resp, err
			}
			logger.Debug("http request completed",
				"method", req.Method,
				"url", url,
				"status", resp.StatusCode,
				"latency", time.Since(start))
			return resp, nil
		})
	}
}
