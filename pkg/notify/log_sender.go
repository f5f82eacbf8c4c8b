package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	channel    string
	testTarget string
	logger     *zap.Logger
}

// NewLogSender builds a LogSender for channel.
func NewLogSender(channel, testTarget string, logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{channel: channel, testTarget: testTarget, logger: logger}
}

// Channel implements Sender.
func (s *LogSender) Channel() string { return s.channel }

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	to := msg.To
	if s.channel == ChannelWhatsApp {
		to = withWhatsAppPrefix(recipient(msg.To, s.testTarget))
	}
	s.logger.Info("notification not delivered, sender in log mode",
		zap.String("channel", s.channel),
		zap.String("to", to),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
