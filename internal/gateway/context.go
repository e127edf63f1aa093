package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

type contextKey int

const requestContextKey contextKey = iota

// RequestContext is the per-request identity record. Created at the start of
// the pipeline, read by metrics and logging, never mutated after creation.
type RequestContext struct {
	ID       string
	ClientIP string
	Method   string
	Path     string
	Start    time.Time
}

// withRequestContext stores rc in ctx.
func withRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFrom retrieves the request context, or a zero value when the
// pipeline did not run (tests calling handlers directly).
func RequestContextFrom(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}

// clientIdentity derives the rate-limit/metrics identity from the source
// address: first X-Forwarded-For hop when present, else the RemoteAddr host.
// Clients behind shared NAT share an identity; known limitation.
func clientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
