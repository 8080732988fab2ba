// AngelaMos | 2026
// mailer.go

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/angelamos/tourways/internal/config"
)

// Mailer delivers transactional mail over SMTP. The reset token goes
// out in plaintext; only its digest lives server-side.
type Mailer struct {
	cfg         config.SMTPConfig
	resetExpire time.Duration
	logger      *slog.Logger
}

func NewMailer(
	cfg config.SMTPConfig,
	resetCfg config.ResetConfig,
	logger *slog.Logger,
) *Mailer {
	return &Mailer{
		cfg:         cfg,
		resetExpire: resetCfg.TokenExpire,
		logger:      logger,
	}
}

func (m *Mailer) SendPasswordReset(
	ctx context.Context,
	email, name, token string,
) error {
	subject := resetSubject(m.resetExpire)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Forgot your password? Submit a PATCH request with your new "+
			"password to /v1/auth/reset-password/%s\n\n"+
			"If you didn't request a password reset, ignore this email.\n",
		name,
		token,
	)

	if err := m.send(ctx, email, subject, body); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}

	m.logger.Info("password reset email sent", "to", email)
	return nil
}

// resetSubject names the configured validity window so the email never
// disagrees with the actual expiry.
func resetSubject(expire time.Duration) string {
	return fmt.Sprintf(
		"Your password reset token (valid for %d minutes)",
		int(expire.Minutes()),
	)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	msg.WriteString("From: " + m.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String()))
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
