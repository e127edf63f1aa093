package genai_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangodesk/summary-gateway/internal/apierr"
	"github.com/mangodesk/summary-gateway/internal/config"
	"github.com/mangodesk/summary-gateway/internal/genai"
)

// scriptedGenerator fails with the scripted errors in order, then succeeds.
type scriptedGenerator struct {
	failures []error
	text     string
	calls    int
	prompts  []string
}

func (s *scriptedGenerator) Generate(_ context.Context, prompt string, _ genai.GenerateOptions) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.calls++
	if s.calls <= len(s.failures) {
		return "", s.failures[s.calls-1]
	}
	return s.text, nil
}

func fastPolicy() genai.CallerOption {
	return genai.WithRetryPolicy(genai.RetryPolicy{
		MaxRetries: config.DefaultMaxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	})
}

func testCallerConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		Timeout:      config.Duration(time.Second),
		ProbeTimeout: config.Duration(time.Second),
	}
}

func TestSummarizeRetriesTransient(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&genai.UpstreamError{StatusCode: 500, Message: "boom"},
			&genai.UpstreamError{StatusCode: 500, Message: "boom again"},
		},
		text: "the summary",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	got, err := caller.Summarize(context.Background(), "summarize", "transcript text")
	require.NoError(t, err)
	assert.Equal(t, "the summary", got)
	assert.Equal(t, 3, gen.calls, "two failures plus the success")
	assert.LessOrEqual(t, gen.calls, 4)
}

func TestSummarizeRetriesRateLimited(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{&genai.UpstreamError{StatusCode: 429, Message: "slow down"}},
		text:     "ok",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	got, err := caller.Summarize(context.Background(), "p", "t")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, gen.calls)
}

func TestSummarizeDoesNotRetryClientError(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{&genai.UpstreamError{StatusCode: 400, Message: "bad request body"}},
		text:     "never reached",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	_, err := caller.Summarize(context.Background(), "p", "t")
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls, "4xx other than 429 must not be retried")

	apiErr := apierr.FromError(err)
	assert.Equal(t, apierr.KindExternalAPI, apiErr.Kind)
	assert.Equal(t, "bad request body", apiErr.Detail, "upstream message carried through")
}

func TestSummarizeExhaustionWrapsLastFailure(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&genai.UpstreamError{StatusCode: 503, Message: "one"},
			&genai.UpstreamError{StatusCode: 503, Message: "two"},
			&genai.UpstreamError{StatusCode: 503, Message: "three"},
			&genai.UpstreamError{StatusCode: 503, Message: "final"},
		},
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	_, err := caller.Summarize(context.Background(), "p", "t")
	require.Error(t, err)
	assert.Equal(t, 4, gen.calls, "initial attempt plus three retries")

	apiErr := apierr.FromError(err)
	assert.Equal(t, apierr.KindExternalAPI, apiErr.Kind)
	assert.Equal(t, "final", apiErr.Detail)
}

func TestSummarizeNetworkErrorsRetryable(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{errors.New("dial tcp: connection refused")},
		text:     "recovered",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	got, err := caller.Summarize(context.Background(), "p", "t")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
}

func TestSummarizeEmptyCandidateNotRetried(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{genai.ErrEmptyCandidate},
		text:     "never reached",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	_, err := caller.Summarize(context.Background(), "p", "t")
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, apierr.KindExternalAPI, apierr.FromError(err).Kind)
}

func TestSummarizePromptAssembly(t *testing.T) {
	gen := &scriptedGenerator{text: "s"}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	_, err := caller.Summarize(context.Background(), "keep it short", "alice: hello")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.HasPrefix(gen.prompts[0], "You are a helpful meeting summarizer. keep it short\n\n"))
	assert.True(t, strings.HasSuffix(gen.prompts[0], "alice: hello"))
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", errors.New("connection reset"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"429", &genai.UpstreamError{StatusCode: 429}, true},
		{"500", &genai.UpstreamError{StatusCode: 500}, true},
		{"599", &genai.UpstreamError{StatusCode: 599}, true},
		{"400", &genai.UpstreamError{StatusCode: 400}, false},
		{"404", &genai.UpstreamError{StatusCode: 404}, false},
		{"empty candidate", genai.ErrEmptyCandidate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, genai.Retryable(tt.err))
		})
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := genai.RetryPolicy{BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
	assert.Equal(t, 500*time.Millisecond, p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(10), "capped at MaxDelay")
}

func TestProbeSingleAttempt(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{&genai.UpstreamError{StatusCode: 500, Message: "down"}},
		text:     "up",
	}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())

	err := caller.Probe(context.Background())
	require.Error(t, err, "probe must not retry past the first failure")
	assert.Equal(t, 1, gen.calls)
}

func TestProbeToleratesEmptyCandidate(t *testing.T) {
	gen := &scriptedGenerator{failures: []error{genai.ErrEmptyCandidate}}
	caller := genai.NewCaller(gen, testCallerConfig(), fastPolicy())
	assert.NoError(t, caller.Probe(context.Background()), "a reachable provider is healthy even if the tiny probe yields no text")
}
