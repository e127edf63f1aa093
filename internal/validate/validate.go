// Package validate holds the per-route input contracts.
//
// DESIGN: One pure function per route. Each takes the raw JSON body and
// returns either a typed, bounds-checked value or a validation error naming
// the first violated constraint. Bounds are checked on the raw input;
// sanitization happens afterwards and never re-runs the bound checks.
package validate

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/mangodesk/summary-gateway/internal/apierr"
	"github.com/mangodesk/summary-gateway/internal/config"
)

// SummarizeRequest is the validated summarize payload.
type SummarizeRequest struct {
	Transcript string `json:"transcript"`
	Prompt     string `json:"prompt"`
}

// SendEmailRequest is the validated send-email payload.
type SendEmailRequest struct {
	Summary    string `json:"summary"`
	Recipients string `json:"recipients"`
}

// Summarize checks the summarize payload: both fields present, transcript
// 1..100000 chars, prompt 1..1000 chars. Lengths are rune counts.
func Summarize(body []byte) (SummarizeRequest, error) {
	var req SummarizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, apierr.Validation("Invalid input", "request body must be valid JSON")
	}
	if req.Transcript == "" {
		return req, apierr.Validation("Invalid input", "transcript is required")
	}
	if utf8.RuneCountInString(req.Transcript) > config.MaxTranscriptChars {
		return req, apierr.Validation("Invalid input", "transcript must be at most 100000 characters")
	}
	if req.Prompt == "" {
		return req, apierr.Validation("Invalid input", "prompt is required")
	}
	if utf8.RuneCountInString(req.Prompt) > config.MaxPromptChars {
		return req, apierr.Validation("Invalid input", "prompt must be at most 1000 characters")
	}
	return req, nil
}

// SendEmail checks the send-email payload: summary and recipients both
// non-empty, recipients a comma-separated list of plausible addresses.
func SendEmail(body []byte) (SendEmailRequest, []string, error) {
	var req SendEmailRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, nil, apierr.Validation("Invalid input", "request body must be valid JSON")
	}
	if req.Summary == "" {
		return req, nil, apierr.Validation("Invalid input", "summary is required")
	}
	if req.Recipients == "" {
		return req, nil, apierr.Validation("Invalid input", "recipients is required")
	}
	recipients, err := ParseRecipients(req.Recipients)
	if err != nil {
		return req, nil, err
	}
	return req, recipients, nil
}

// ParseRecipients splits a comma-separated address list, trims each entry,
// and rejects entries that are not of the form local@domain.
func ParseRecipients(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		addr := strings.TrimSpace(p)
		if addr == "" {
			continue
		}
		if !plausibleAddress(addr) {
			return nil, apierr.Validation("Invalid input", "invalid recipient address: "+addr)
		}
		recipients = append(recipients, addr)
	}
	if len(recipients) == 0 {
		return nil, apierr.Validation("Invalid input", "recipients must contain at least one address")
	}
	return recipients, nil
}

// plausibleAddress is a shape check, not RFC 5322 validation: exactly one
// '@' with non-empty local part and a dotted domain.
func plausibleAddress(addr string) bool {
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at != strings.LastIndexByte(addr, '@') {
		return false
	}
	domain := addr[at+1:]
	if domain == "" || strings.ContainsAny(addr, " \t\r\n") {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}
