// Package mail sends transactional email over SMTP. When no SMTP host
// is configured the mailer logs the verification link instead, which
// keeps local development working without a mail account.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/url"
	"strings"

	"finmate/internal/config"
)

type Mailer struct {
	host        string
	port        int
	username    string
	password    string
	fromEmail   string
	fromName    string
	frontendURL string
	logger      *slog.Logger
}

func NewMailer(cfg *config.Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:        cfg.SMTPHost,
		port:        cfg.SMTPPort,
		username:    cfg.SMTPUser,
		password:    cfg.SMTPPassword,
		fromEmail:   cfg.SMTPFromEmail,
		fromName:    cfg.SMTPFromName,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger,
	}
}

// VerificationURL builds the link the user clicks to confirm their email.
func (m *Mailer) VerificationURL(token string) string {
	return m.frontendURL + "/auth/verify?token=" + url.QueryEscape(token)
}

// SendVerificationEmail mails the verification link to the given
// address. Without an SMTP host it only logs the link.
func (m *Mailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	link := m.VerificationURL(token)

	if m.host == "" {
		m.logger.InfoContext(ctx, "SMTP not configured, logging verification link instead",
			"email", email,
			"link", link,
		)
		return nil
	}

	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Thanks for signing up. Please confirm your email address by opening the link below:\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not create an account, you can ignore this message.\r\n",
		link,
	)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.fromName, m.fromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := smtp.SendMail(addr, auth, m.fromEmail, []string{email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send verification email to %s: %w", email, err)
	}

	m.logger.InfoContext(ctx, "Sent verification email", "email", email)
	return nil
}
