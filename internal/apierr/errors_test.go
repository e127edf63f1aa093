package apierr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangodesk/summary-gateway/internal/apierr"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *apierr.Error
		want int
	}{
		{"validation", apierr.Validation("Invalid input", "transcript is required"), http.StatusBadRequest},
		{"rate limit", apierr.RateLimit("Too many requests"), http.StatusTooManyRequests},
		{"external", apierr.External("Failed to generate summary", "upstream 503"), http.StatusBadGateway},
		{"internal", apierr.Internal("Failed to send email", "dial tcp: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

func TestFromError(t *testing.T) {
	tagged := apierr.Validation("Invalid input", "prompt is required")
	assert.Same(t, tagged, apierr.FromError(tagged))

	wrapped := fmt.Errorf("handling request: %w", tagged)
	assert.Same(t, tagged, apierr.FromError(wrapped))

	plain := errors.New("boom")
	got := apierr.FromError(plain)
	assert.Equal(t, apierr.KindInternal, got.Kind)
	assert.Equal(t, "boom", got.Detail)
}

func TestWriteEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
	}{
		{
			name:        "validation carries details",
			err:         apierr.Validation("Invalid input", "transcript is required"),
			wantStatus:  400,
			wantError:   "Invalid input",
			wantDetails: "transcript is required",
		},
		{
			name:       "internal detail withheld from wire",
			err:        errors.New("smtp: connection refused"),
			wantStatus: 500,
			wantError:  "internal server error",
		},
		{
			name:        "external carries upstream message",
			err:         apierr.External("Failed to generate summary", "quota exceeded"),
			wantStatus:  502,
			wantError:   "Failed to generate summary",
			wantDetails: "quota exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			apierr.Write(rec, "req-1", tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var env apierr.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
			assert.Equal(t, tt.wantDetails, env.Details)
		})
	}
}

func TestWriteStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.WriteStatus(rec, "req-2", http.StatusForbidden, "origin not allowed")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var env apierr.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "origin not allowed", env.Error)
}
