package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/studymatch/backend/internal"
)

// Sender delivers transactional mail. Implementations must not block the
// caller longer than the context allows.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	cfg internal.MailConfig
}

func NewSMTPSender(cfg internal.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Reset your password\r\n\r\n"+
			"A password reset was requested for your account.\r\n\r\n"+
			"Open this link to choose a new password (valid for 24 hours):\r\n%s\r\n\r\n"+
			"If you did not request this, you can ignore this message.\r\n",
		s.cfg.From, to, resetURL)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(body))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes mail to the log instead of the network. Used in
// development and tests.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(_ context.Context, to, resetURL string) error {
	s.logger.Info("password reset mail (dev mode)", "to", to, "reset_url", resetURL)
	return nil
}
