package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TelegramNotifier delivers events as Telegram messages
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramNotifier creates a Telegram notifier for the given bot token
// and chat
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: http.DefaultClient,
	}
}

// Notify formats and sends the event as a Telegram message
func (t *TelegramNotifier) Notify(event Event) error {
	emoji := "ℹ️"
	switch event.(type) {
	case ExecutionSuccess, TradingResumed:
		emoji = "✅"
	case ExecutionFailure, TradingBlocked:
		emoji = "⚠️"
	case RiskBreach, PositionUnprotected:
		emoji = "🚨"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, event.Name(), event.Summary())

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
