// Package gateway composes the request pipeline and route handlers for the
// meeting-summary service.
//
// DESIGN: Main request flow:
//   - withMiddleware():   fixed-order pipeline (middleware.go)
//   - handleSummarize():  admit -> validate -> sanitize -> resilient call
//   - handleSendEmail():  admit -> validate -> dispatch
//   - handleHealth():     upstream probe + email configuration state
//
// All shared state (metrics, limiters) is constructed here and injected,
// never package-global, so tests get isolated instances.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/config"
	"github.com/mangodesk/summary-gateway/internal/email"
	"github.com/mangodesk/summary-gateway/internal/genai"
	"github.com/mangodesk/summary-gateway/internal/monitoring"
	"github.com/mangodesk/summary-gateway/internal/ratelimit"
)

// Gateway is the HTTP service. Construct with New, serve with Start or
// mount Handler directly.
type Gateway struct {
	cfg     *config.Config
	metrics *monitoring.MetricsCollector
	caller  *genai.Caller
	emailer email.Sender

	summarizeLimiter *ratelimit.Limiter
	emailLimiter     *ratelimit.Limiter
	allowedOrigins   map[string]struct{}

	srv *http.Server
}

// Option overrides a Gateway collaborator, mainly for tests.
type Option func(*Gateway)

// WithGenerator replaces the upstream text-generation capability.
func WithGenerator(gen genai.Generator) Option {
	return func(g *Gateway) {
		g.caller = genai.NewCaller(gen, g.cfg.Generator)
	}
}

// WithCaller replaces the fully built resilient caller.
func WithCaller(c *genai.Caller) Option {
	return func(g *Gateway) { g.caller = c }
}

// WithEmailSender replaces the email dispatch capability.
func WithEmailSender(s email.Sender) Option {
	return func(g *Gateway) { g.emailer = s }
}

// WithMetrics replaces the metrics collector.
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(g *Gateway) { g.metrics = mc }
}

// WithLimiters replaces the per-route admission limiters.
func WithLimiters(summarize, emailL *ratelimit.Limiter) Option {
	return func(g *Gateway) {
		g.summarizeLimiter = summarize
		g.emailLimiter = emailL
	}
}

// New wires a Gateway from config. Default collaborators: Gemini client
// behind the resilient caller, SMTP sender when credentials are present.
func New(cfg *config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:              cfg,
		metrics:          monitoring.NewMetricsCollector(config.ResponseTimeSamples),
		summarizeLimiter: ratelimit.New(cfg.Limits.SummarizeRPM, cfg.Limits.Window.D()),
		emailLimiter:     ratelimit.New(cfg.Limits.EmailRPM, cfg.Limits.Window.D()),
		allowedOrigins:   make(map[string]struct{}),
	}
	for _, origin := range cfg.AllowedOrigins() {
		g.allowedOrigins[origin] = struct{}{}
	}

	client := genai.NewClient(cfg.Generator)
	g.caller = genai.NewCaller(client, cfg.Generator)

	if cfg.EmailConfigured() {
		g.emailer = email.NewSMTPSender(cfg.Email)
	} else {
		g.emailer = email.NopSender{}
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the composed http.Handler for the full route surface.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.withMiddleware(g.handleRoot))
	mux.HandleFunc("/health", g.withMiddleware(g.handleHealth))
	mux.HandleFunc("/metrics", g.withMiddleware(g.handleMetrics))
	mux.HandleFunc("/v1/summarize", g.withMiddleware(g.handleSummarize))
	mux.HandleFunc("/v1/send-email", g.withMiddleware(g.handleSendEmail))
	return mux
}

// Start runs the HTTP server; it blocks until the server stops.
func (g *Gateway) Start() error {
	g.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", g.cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  g.cfg.Server.ReadTimeout.D(),
		WriteTimeout: g.cfg.Server.WriteTimeout.D(),
	}
	log.Info().Int("port", g.cfg.Server.Port).Msg("server running")
	if err := g.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	log.Info().Msg("shutting down gracefully")
	return g.srv.Shutdown(ctx)
}
