// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when exact counts aren't available.
const TokenEstimateRatio = 4

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the port the gateway listens on.
const DefaultPort = 5000

// MaxRequestBodySize is the maximum allowed request body (2MB).
const MaxRequestBodySize = 2 * 1024 * 1024

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 15 * time.Second

// DefaultServerWriteTimeout for the HTTP server. Must comfortably exceed
// the worst-case upstream retry schedule.
const DefaultServerWriteTimeout = 3 * time.Minute

// DefaultShutdownTimeout bounds graceful shutdown on SIGTERM/SIGINT.
const DefaultShutdownTimeout = 10 * time.Second

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultRateLimitWindow is the admission window for all route limiters.
const DefaultRateLimitWindow = time.Minute

// DefaultSummarizeRPM is the per-client summarize admission limit per window.
const DefaultSummarizeRPM = 10

// DefaultEmailRPM is the per-client send-email admission limit per window.
const DefaultEmailRPM = 5

// MaxRateLimitBuckets prevents memory exhaustion from too many client buckets.
const MaxRateLimitBuckets = 10000

// =============================================================================
// UPSTREAM GENERATION
// =============================================================================

// DefaultGeneratorBaseURL is the Gemini REST endpoint base.
const DefaultGeneratorBaseURL = "https://generativelanguage.googleapis.com"

// DefaultGeneratorModel is the generation model used for summaries.
const DefaultGeneratorModel = "gemini-1.5-flash-latest"

// DefaultGenerateTimeout is the per-attempt deadline for summarization calls.
const DefaultGenerateTimeout = 30 * time.Second

// DefaultProbeTimeout is the deadline for health-check probes.
const DefaultProbeTimeout = 5 * time.Second

// DefaultMaxRetries is the number of retries beyond the initial attempt.
const DefaultMaxRetries = 3

// DefaultBackoffBase is the first retry delay; doubles each attempt.
const DefaultBackoffBase = 500 * time.Millisecond

// DefaultBackoffCap bounds the exponential backoff delay.
const DefaultBackoffCap = 8 * time.Second

// DefaultMaxOutputTokens caps generated summary length.
const DefaultMaxOutputTokens = 512

// DefaultTemperature for summary generation.
const DefaultTemperature = 0.5

// =============================================================================
// VALIDATION BOUNDS
// =============================================================================

// MaxTranscriptChars is the upper bound on transcript length (in runes).
const MaxTranscriptChars = 100000

// MaxPromptChars is the upper bound on instruction length (in runes).
const MaxPromptChars = 1000

// =============================================================================
// METRICS
// =============================================================================

// ResponseTimeSamples is the capacity of the latency ring buffer.
const ResponseTimeSamples = 1000
