package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/pkg/config"
)

type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender sends plain-text e-mail through SendGrid.
type EmailSender struct {
	client   mailClient
	fromName string
	from     string
	logger   *zap.Logger
}

// NewEmailSender returns a SendGrid sender, or a LogSender when the key or sender address is missing.
func NewEmailSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendGridAPIKey == "" || cfg.SendGridFromEmail == "" {
		logger.Info("sendgrid not configured, e-mails will only be logged")
		return NewLogSender(ChannelEmail, "", logger)
	}
	return newEmailSender(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg.SendGridFromName, cfg.SendGridFromEmail, logger)
}

func newEmailSender(client mailClient, fromName, from string, logger *zap.Logger) *EmailSender {
	return &EmailSender{client: client, fromName: fromName, from: from, logger: logger}
}

// Channel implements Sender.
func (s *EmailSender) Channel() string { return ChannelEmail }

// Send implements Sender. Non-2xx responses are errors so the queue retries them.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient missing")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		"",
	)
	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	s.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Int("status", resp.StatusCode))
	return nil
}
