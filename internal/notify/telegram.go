package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/lifeline-calendar/internal/format"
)

type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers reminders as Telegram messages. Recipients are
// numeric chat ids.
type TelegramSender struct {
	api botClient
}

func NewTelegramSender(token string, timeout time.Duration) (*TelegramSender, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramSender{api: api}, nil
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) ValidRecipient(recipient string) bool {
	id, err := strconv.ParseInt(recipient, 10, 64)
	return err == nil && id != 0
}

// Send renders body as Markdown entities. The subject is implied by the
// body's first line, so it is not sent separately.
func (s *TelegramSender) Send(ctx context.Context, recipient, subject, body string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", recipient, err)
	}
	if body == "" {
		body = subject
	}

	parsed := format.ParseMarkdown(body)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities

	done := make(chan error, 1)
	go func() {
		_, err := s.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		return nil
	}
}
