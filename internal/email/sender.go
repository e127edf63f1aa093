// Package email is the injected summary-dispatch capability.
//
// DESIGN: The gateway depends only on the Sender interface; the SMTP
// implementation is the default wiring. No corpus repo carries a mail
// library, so the transport rides on net/smtp.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/config"
)

// Sender dispatches a generated summary to a recipient list.
type Sender interface {
	// Send delivers summary to recipients; an error means nothing was
	// (reliably) delivered.
	Send(ctx context.Context, summary string, recipients []string) error
	// Configured reports whether credentials are present. Used by the
	// health endpoint; never attempts a connection.
	Configured() bool
}

// subject line used for every dispatched summary.
const subject = "Meeting Summary"

// SMTPSender sends summaries over authenticated SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender from config. From defaults to the
// username.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// Configured implements Sender.
func (s *SMTPSender) Configured() bool {
	return s.username != "" && s.password != ""
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, summary string, recipients []string) error {
	if !s.Configured() {
		return fmt.Errorf("email is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.from, recipients, summary)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	// smtp.SendMail has no context plumbing; run it in a goroutine so a
	// cancelled request stops waiting even if the dial hangs.
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.from, recipients, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending email: %w", err)
		}
		log.Info().Int("recipients", len(recipients)).Msg("summary email dispatched")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMessage renders a plain-text RFC 822 message.
func buildMessage(from string, to []string, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// NopSender is the unconfigured stand-in used when no SMTP settings are
// present; every Send fails fast with a classifiable error.
type NopSender struct{}

// Configured implements Sender.
func (NopSender) Configured() bool { return false }

// Send implements Sender.
func (NopSender) Send(context.Context, string, []string) error {
	return fmt.Errorf("email is not configured")
}
