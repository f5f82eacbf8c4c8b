package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/pkg/config"
)

const whatsappPrefix = "whatsapp:"

type twilioMessenger interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// WhatsAppSender sends WhatsApp messages through Twilio.
type WhatsAppSender struct {
	api        twilioMessenger
	from       string
	testTarget string
	logger     *zap.Logger
}

// NewWhatsAppSender returns a Twilio sender, or a LogSender when credentials are missing.
func NewWhatsAppSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		logger.Info("twilio credentials missing, whatsapp messages will only be logged")
		return NewLogSender(ChannelWhatsApp, cfg.TestWhatsAppTo, logger)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   cfg.TwilioAccountSID,
		Password:   cfg.TwilioAuthToken,
		AccountSid: cfg.TwilioAccountSID,
	})
	return newWhatsAppSender(client.Api, cfg.TwilioFromNumber, cfg.TestWhatsAppTo, logger)
}

func newWhatsAppSender(api twilioMessenger, from, testTarget string, logger *zap.Logger) *WhatsAppSender {
	return &WhatsAppSender{api: api, from: withWhatsAppPrefix(from), testTarget: testTarget, logger: logger}
}

// Channel implements Sender.
func (s *WhatsAppSender) Channel() string { return ChannelWhatsApp }

// Send implements Sender. TEST_WHATSAPP_TARGET, when set, replaces every recipient.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	to := recipient(msg.To, s.testTarget)
	if to == "" {
		return fmt.Errorf("whatsapp recipient missing")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(withWhatsAppPrefix(to))
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send whatsapp: %w", err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("whatsapp sent", zap.String("to", withWhatsAppPrefix(to)), zap.String("sid", sid))
	return nil
}

func recipient(to, testTarget string) string {
	if testTarget != "" {
		return testTarget
	}
	return strings.TrimSpace(to)
}

func withWhatsAppPrefix(number string) string {
	if number == "" || strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}
