// Package sender holds the delivery transports used in send mode.
package sender

import (
	"context"
	"log/slog"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

// LogSender only logs the message. It is the default so that send mode never
// reaches a real inbox until a transport is configured.
type LogSender struct {
	logger *slog.Logger
}

var _ ports.Sender = (*LogSender)(nil)

// NewLogSender builds the placeholder transport.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Name identifies the provider.
func (s *LogSender) Name() string {
	return "log"
}

// Send records the intent to deliver.
func (s *LogSender) Send(_ context.Context, msg domain.Message) error {
	s.logger.Info("would send",
		"domain", msg.Metadata.Domain,
		"url", msg.Metadata.URL,
		"subject", msg.Subject)
	return nil
}
