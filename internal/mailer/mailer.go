// internal/mailer/mailer.go

// Package mailer relays contact-form submissions through Resend: one
// notification to the site owner, plus a best-effort auto-reply to the
// sender.
package mailer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Resend sends contact emails via the Resend API.
type Resend struct {
	client *resend.Client
	from   string
	to     string
	logger *slog.Logger
}

// NewResend creates a mailer. from is the verified sender address, to the
// owner's inbox for notifications.
func NewResend(apiKey, from, to string, logger *slog.Logger) *Resend {
	return &Resend{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
		logger: logger,
	}
}

// SendContactEmail delivers the notification email and then attempts an
// auto-reply. A failed auto-reply is logged but does not fail the call.
func (m *Resend) SendContactEmail(ctx context.Context, name, email, message string) error {
	notification := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Portfolio Contact <%s>", m.from),
		To:      []string{m.to},
		ReplyTo: email,
		Subject: "Portfolio Contact: " + name,
		Html:    notificationHTML(name, email, message),
	}

	if _, err := m.client.Emails.SendWithContext(ctx, notification); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	autoReply := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Portfolio <%s>", m.from),
		To:      []string{email},
		Subject: "Thank you for contacting me!",
		Html:    autoReplyHTML(name),
	}

	if _, err := m.client.Emails.SendWithContext(ctx, autoReply); err != nil {
		m.logger.Warn("Auto-reply failed, but notification was sent", "error", err)
	}

	return nil
}

func notificationHTML(name, email, message string) string {
	escaped := html.EscapeString(message)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")

	return fmt.Sprintf(`<h2>New Contact Form Submission</h2>
<p><strong>From:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Message:</strong></p>
<p>%s</p>
<hr>
<p style="color: #666; font-size: 12px;">This email was sent from your portfolio contact form.</p>`,
		html.EscapeString(name), html.EscapeString(email), escaped)
}

func autoReplyHTML(name string) string {
	return fmt.Sprintf(`<h2>Hi %s,</h2>
<p>Thank you for reaching out through my portfolio! I've received your message and will get back to you as soon as possible.</p>
<p>Best regards</p>`, html.EscapeString(name))
}
