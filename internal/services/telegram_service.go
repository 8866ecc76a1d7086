package services

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramNotifier delivers verification codes to the user's linked chat.
// The recipient is the chat ID rendered as a decimal string.
type telegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(botToken string) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &telegramNotifier{bot: bot}, nil
}

func (n *telegramNotifier) SendVerificationCode(recipient, username, code string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil || chatID == 0 {
		return fmt.Errorf("%w: no telegram chat linked for %s", ErrDeliveryFailed, username)
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Your verification code is: %s", code))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
