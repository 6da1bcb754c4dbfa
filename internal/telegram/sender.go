package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender adapts the raw bot API to the outbound interfaces the services
// consume: direct notifications and message forwarding.
type Sender struct {
	api *tgbotapi.BotAPI
}

func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) Notify(ctx context.Context, telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Forward relays a message by id to a public channel handle, keeping the
// platform's forwarded-from attribution.
func (s *Sender) Forward(ctx context.Context, fromChatID int64, messageID int, targetHandle string) error {
	fwd := tgbotapi.ForwardConfig{
		BaseChat:   tgbotapi.BaseChat{ChannelUsername: "@" + targetHandle},
		FromChatID: fromChatID,
		MessageID:  messageID,
	}
	if _, err := s.api.Send(fwd); err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}
