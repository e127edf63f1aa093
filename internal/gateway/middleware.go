// Middleware chain for the gateway.
//
// DESIGN: Fixed, request-scoped order (outermost first):
//
//	request identity -> metrics/logging -> gzip -> panic recovery
//	-> security headers -> CORS -> body limit -> route handler
//
// Recovery sits inside compression so a recovered panic still writes its
// envelope through the open gzip stream instead of after its trailer.
//
// Metrics-start always precedes the handler; metrics-end fires exactly once
// on every exit path, including panics, via the deferred finalizer around
// the status-capturing response writer.
package gateway

import (
	"compress/gzip"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/apierr"
)

// withMiddleware wraps a route handler with the full pipeline.
func (g *Gateway) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return g.requestIDMiddleware(
		g.metricsMiddleware(
			g.compressionMiddleware(
				g.recoveryMiddleware(
					g.securityHeadersMiddleware(
						g.corsMiddleware(
							g.bodyLimitMiddleware(handler),
						),
					),
				),
			),
		),
	)
}

// requestIDMiddleware assigns the request identity and builds the
// RequestContext. A valid inbound X-Request-Id is reused so a fronting proxy
// can correlate logs; anything else is replaced.
func (g *Gateway) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		rc := &RequestContext{
			ID:       requestID,
			ClientIP: clientIdentity(r),
			Method:   r.Method,
			Path:     r.URL.Path,
			Start:    time.Now(),
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(withRequestContext(r.Context(), rc)))
	}
}

// metricsMiddleware records entry/exit metrics and structured request logs.
func (g *Gateway) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := RequestContextFrom(r.Context())
		g.metrics.RecordStart(rc.Method, rc.Path)

		log.Info().
			Str("request_id", rc.ID).
			Str("method", rc.Method).
			Str("path", rc.Path).
			Str("client_ip", rc.ClientIP).
			Str("user_agent", r.UserAgent()).
			Msg("incoming request")

		rw := newResponseWriter(w)
		defer func() {
			elapsed := time.Since(rc.Start)
			g.metrics.RecordEnd(rw.Status(), elapsed)
			log.Info().
				Str("request_id", rc.ID).
				Str("method", rc.Method).
				Str("path", rc.Path).
				Int("status", rw.Status()).
				Dur("duration", elapsed).
				Int("content_length", rw.BytesWritten()).
				Msg("outgoing response")
		}()

		next.ServeHTTP(rw, r)
	}
}

// recoveryMiddleware is the last line of defense: a panic anywhere
// downstream becomes an InternalError envelope instead of a dropped
// connection, and the deferred metrics finalizer still observes the 500.
func (g *Gateway) recoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				rc := RequestContextFrom(r.Context())
				apierr.Write(w, rc.ID, apierr.Internal("internal server error", fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	}
}

// compressionMiddleware gzips the response when the client accepts it.
func (g *Gateway) compressionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gz := gzip.NewWriter(w)
		defer func() { _ = gz.Close() }()
		next.ServeHTTP(&gzipWriter{ResponseWriter: w, gz: gz}, r)
	}
}

// securityHeadersMiddleware sets the standard hardening headers.
func (g *Gateway) securityHeadersMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	}
}

// corsMiddleware enforces the credentialed allow-list. Requests without an
// Origin header (same-origin, curl, server-to-server) are always allowed;
// cross-origin requests from outside the allow-list are rejected with the
// standard envelope.
func (g *Gateway) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := g.allowedOrigins[origin]; !ok {
			rc := RequestContextFrom(r.Context())
			apierr.WriteStatus(w, rc.ID, http.StatusForbidden, "origin not allowed")
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// bodyLimitMiddleware caps inbound bodies at the configured ceiling.
func (g *Gateway) bodyLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, g.cfg.Limits.BodyLimit)
		}
		next.ServeHTTP(w, r)
	}
}

// setRateLimitHeaders exposes the admission decision to the client.
func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}
