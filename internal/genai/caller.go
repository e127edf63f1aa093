package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/apierr"
	"github.com/mangodesk/summary-gateway/internal/config"
)

// systemPreamble is prepended to every summarization prompt.
const systemPreamble = "You are a helpful meeting summarizer."

// probePrompt is the minimal-cost prompt used by health checks.
const probePrompt = "Test"

// RetryPolicy bounds the retry loop around a Generator.
//
// Retrying assumes a repeated generateContent call is side-effect free on
// the provider side; revisit if the provider contract changes.
type RetryPolicy struct {
	// MaxRetries is the attempt count beyond the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay; doubles each retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy mirrors the defaults.go retry schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: config.DefaultMaxRetries,
		BaseDelay:  config.DefaultBackoffBase,
		MaxDelay:   config.DefaultBackoffCap,
	}
}

// Delay returns the backoff before retry attempt n (0-based): base * 2^n,
// capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// Retryable reports whether a failed attempt is worth repeating: transport
// or timeout errors, upstream 429, and upstream 5xx. Other 4xx statuses
// indicate a malformed request, and an empty candidate indicates a provider
// that answered fine but produced nothing; neither improves on retry.
func Retryable(err error) bool {
	if errors.Is(err, ErrEmptyCandidate) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode == 429 || (ue.StatusCode >= 500 && ue.StatusCode <= 599)
	}
	// Anything else reaching here is connection-level: dial failures,
	// resets, exceeded deadlines.
	return true
}

// Caller wraps a Generator with per-attempt deadlines, bounded retries, and
// exponential backoff.
type Caller struct {
	generator    Generator
	policy       RetryPolicy
	timeout      time.Duration
	probeTimeout time.Duration
	maxTokens    int
	temperature  float64
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) CallerOption {
	return func(c *Caller) { c.policy = p }
}

// WithTimeouts overrides the summarize and probe deadlines.
func WithTimeouts(generate, probe time.Duration) CallerOption {
	return func(c *Caller) {
		c.timeout = generate
		c.probeTimeout = probe
	}
}

// NewCaller creates a Caller around gen using cfg's timeouts and budgets.
func NewCaller(gen Generator, cfg config.GeneratorConfig, opts ...CallerOption) *Caller {
	c := &Caller{
		generator:    gen,
		policy:       DefaultRetryPolicy(),
		timeout:      cfg.Timeout.D(),
		probeTimeout: cfg.ProbeTimeout.D(),
		maxTokens:    cfg.MaxOutputTokens,
		temperature:  cfg.Temperature,
	}
	if cfg.MaxRetries > 0 {
		c.policy.MaxRetries = cfg.MaxRetries
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultGenerateTimeout
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = config.DefaultProbeTimeout
	}
	if c.maxTokens <= 0 {
		c.maxTokens = config.DefaultMaxOutputTokens
	}
	if c.temperature == 0 {
		c.temperature = config.DefaultTemperature
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize generates a summary for the sanitized transcript and
// instruction. Transient upstream failures are retried per the policy; on
// exhaustion the last failure is surfaced as an ExternalAPIError carrying
// the upstream's message when available.
func (c *Caller) Summarize(ctx context.Context, prompt, transcript string) (string, error) {
	full := fmt.Sprintf("%s %s\n\n%s", systemPreamble, prompt, transcript)
	opts := GenerateOptions{MaxOutputTokens: c.maxTokens, Temperature: c.temperature}

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt - 1)
			log.Warn().
				Int("attempt", attempt).
				Dur("backoff", delay).
				Err(lastErr).
				Msg("retrying upstream generation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", apierr.External("Failed to generate summary", ctx.Err().Error())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.generator.Generate(attemptCtx, full, opts)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) {
			break
		}
	}

	return "", apierr.External("Failed to generate summary", upstreamDetail(lastErr))
}

// Probe issues a single short-deadline, minimal-cost generation call. No
// retries: a health check should report current state, not mask it behind
// backoff.
func (c *Caller) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	_, err := c.generator.Generate(probeCtx, probePrompt, GenerateOptions{MaxOutputTokens: 10, Temperature: c.temperature})
	if err != nil && !errors.Is(err, ErrEmptyCandidate) {
		return err
	}
	return nil
}

// upstreamDetail prefers the provider's reported message over the low-level
// failure text.
func upstreamDetail(err error) string {
	if err == nil {
		return ""
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}
