package report

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Telegram bot API the sink uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts reports to a chat. With ActionableOnly set, analysis
// reports that do not recommend spraying are skipped; lifecycle reports are
// always sent.
type TelegramSink struct {
	bot            Sender
	chatID         int64
	ActionableOnly bool
}

// NewTelegramSink logs in with a bot token.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return NewTelegramSinkWithSender(bot, chatID), nil
}

// NewTelegramSinkWithSender builds a sink around an existing sender.
func NewTelegramSinkWithSender(bot Sender, chatID int64) *TelegramSink {
	return &TelegramSink{bot: bot, chatID: chatID}
}

// Emit sends the report text to the chat.
func (s *TelegramSink) Emit(r Report) error {
	if s.ActionableOnly && !r.Kind.Terminal() &&
		(r.Recommendation == nil || !r.Recommendation.SprayRecommended) {
		return nil
	}
	msg := tgbotapi.NewMessage(s.chatID, Format(r))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
