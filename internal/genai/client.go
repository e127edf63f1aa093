// Package genai talks to the upstream text-generation provider.
//
// FILES:
//   - client.go: Generator contract and the Gemini REST client
//   - caller.go: retry/backoff policy wrapped around a Generator
package genai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mangodesk/summary-gateway/internal/config"
	"github.com/mangodesk/summary-gateway/internal/tokens"
	"github.com/mangodesk/summary-gateway/internal/utils"
)

// candidateTextPath locates the first generated candidate in a
// generateContent response.
const candidateTextPath = "candidates.0.content.parts.0.text"

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// Generator is the injected text-generation capability. Generate returns the
// first candidate text; an empty candidate is ErrEmptyCandidate, never "".
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ErrEmptyCandidate marks a well-formed upstream response that carried no
// usable candidate text.
var ErrEmptyCandidate = fmt.Errorf("upstream returned no candidate text")

// UpstreamError is a non-2xx response from the provider. Its status drives
// retry eligibility.
type UpstreamError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// =============================================================================
// Client
// =============================================================================

// Client is the Gemini generateContent client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	estimator  *tokens.Estimator
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL overrides the provider base URL (tests point this at a fake).
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		client.baseURL = u
	}
}

// NewClient creates a Gemini client from config.
func NewClient(cfg config.GeneratorConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		estimator: tokens.NewEstimator(),
		// Per-attempt deadlines come from the caller's context; the
		// transport-level timeout is only a backstop.
		httpClient: &http.Client{Timeout: 2 * config.DefaultGenerateTimeout},
	}
	if c.baseURL == "" {
		c.baseURL = config.DefaultGeneratorBaseURL
	}
	if c.model == "" {
		c.model = config.DefaultGeneratorModel
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Debug().
		Str("model", c.model).
		Str("api_key", utils.MaskKey(c.apiKey)).
		Msg("generator client created")
	return c
}

// Generate performs one generateContent call and extracts the first
// candidate text.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	body, err := c.buildBody(prompt, opts)
	if err != nil {
		return "", fmt.Errorf("building request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure (connect, reset, deadline).
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	text := gjson.GetBytes(respBody, candidateTextPath).String()
	log.Debug().
		Int("status", resp.StatusCode).
		Int("prompt_tokens_est", c.estimator.Count(prompt)).
		Dur("elapsed", time.Since(start)).
		Bool("empty_candidate", text == "").
		Msg("generate call completed")
	if text == "" {
		return "", ErrEmptyCandidate
	}
	return text, nil
}

// buildBody assembles the generateContent payload. sjson handles the JSON
// escaping of the prompt text.
func (c *Client) buildBody(prompt string, opts GenerateOptions) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "contents.0.parts.0.text", prompt); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "generationConfig.temperature", opts.Temperature); err != nil {
		return nil, err
	}
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxOutputTokens
	}
	if body, err = sjson.SetBytes(body, "generationConfig.maxOutputTokens", maxTokens); err != nil {
		return nil, err
	}
	return body, nil
}
