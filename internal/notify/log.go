package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hray3182/lifeline-calendar/internal/logger"
)

// LogSender writes reminders to the log instead of delivering them.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) ValidRecipient(recipient string) bool {
	return strings.TrimSpace(recipient) != ""
}

func (s *LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("NOTIFY", fmt.Sprintf("to=%s subject=%q body=%q", recipient, subject, body))
	return nil
}
