package gateway

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mangodesk/summary-gateway/internal/apierr"
	"github.com/mangodesk/summary-gateway/internal/utils"
	"github.com/mangodesk/summary-gateway/internal/validate"
)

// summarizeResponse is the success envelope for POST /v1/summarize.
type summarizeResponse struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
}

// sendEmailResponse is the success envelope for POST /v1/send-email.
type sendEmailResponse struct {
	Success bool `json:"success"`
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// writeJSON writes v with status, using MarshalNoEscape so entity-escaped
// summary text survives the trip untouched.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := utils.MarshalNoEscape(v)
	if err != nil {
		// Marshal of our own response types cannot realistically fail;
		// surface it rather than hide it.
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// readBody drains the (size-capped) request body, classifying an exceeded
// cap as a validation failure.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierr.Validation("Invalid input",
				"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		}
		return nil, apierr.Validation("Invalid input", "failed to read request body")
	}
	return body, nil
}

// requirePost rejects non-POST verbs on the API routes.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		rc := RequestContextFrom(r.Context())
		w.Header().Set("Allow", http.MethodPost)
		apierr.WriteStatus(w, rc.ID, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// handleRoot answers the liveness banner; unknown paths fall through the mux
// to here and get a 404 envelope.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		rc := RequestContextFrom(r.Context())
		apierr.WriteStatus(w, rc.ID, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Summary Gateway API is running!",
		"status":  "healthy",
	})
}

// handleHealth aggregates upstream and email dependency state. The
// generator probe runs with its own short deadline; a failed probe degrades
// the report, it never fails the endpoint.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	if err := g.caller.Probe(r.Context()); err != nil {
		health.Services["generator"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["generator"] = "healthy"
	}

	if g.emailer.Configured() {
		health.Services["email"] = "configured"
	} else {
		health.Services["email"] = "not configured"
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// handleMetrics serves the process-wide metrics snapshot.
func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.metrics.Snapshot())
}

// handleSummarize is the transcript-to-summary route: admission first (no
// validation work for rejected clients), then schema checks, sanitization,
// and the resilient upstream call.
func (g *Gateway) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	rc := RequestContextFrom(r.Context())

	decision := g.summarizeLimiter.Admit(rc.ClientIP)
	setRateLimitHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)
	if !decision.Allowed {
		w.Header().Set("Retry-After", retryAfter(decision.ResetAt))
		apierr.Write(w, rc.ID, apierr.RateLimit(
			"Too many summarize requests from this IP, please try again later."))
		return
	}

	body, err := readBody(r)
	if err != nil {
		apierr.Write(w, rc.ID, err)
		return
	}

	req, err := validate.Summarize(body)
	if err != nil {
		apierr.Write(w, rc.ID, err)
		return
	}

	transcript := validate.SanitizeText(req.Transcript)
	prompt := validate.SanitizeText(req.Prompt)

	summary, err := g.caller.Summarize(r.Context(), prompt, transcript)
	if err != nil {
		apierr.Write(w, rc.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{Success: true, Summary: summary})
}

// handleSendEmail dispatches a summary to a recipient list. Transport
// failures are unclassified (500) per the error taxonomy.
func (g *Gateway) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	rc := RequestContextFrom(r.Context())

	decision := g.emailLimiter.Admit(rc.ClientIP)
	setRateLimitHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)
	if !decision.Allowed {
		w.Header().Set("Retry-After", retryAfter(decision.ResetAt))
		apierr.Write(w, rc.ID, apierr.RateLimit(
			"Too many email requests from this IP, please try again later."))
		return
	}

	body, err := readBody(r)
	if err != nil {
		apierr.Write(w, rc.ID, err)
		return
	}

	req, recipients, err := validate.SendEmail(body)
	if err != nil {
		apierr.Write(w, rc.ID, err)
		return
	}

	if err := g.emailer.Send(r.Context(), req.Summary, recipients); err != nil {
		apierr.Write(w, rc.ID, apierr.Internal("Failed to send email", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, sendEmailResponse{Success: true})
}

// retryAfter renders the seconds until the window resets, minimum 1.
func retryAfter(resetAt time.Time) string {
	secs := int(time.Until(resetAt).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
