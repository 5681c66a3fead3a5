package notify

import (
	"context"
	"fmt"
	"strings"

	pkghttp "DerivBot/pkg/http"
)

// TelegramNotifier posts messages through the Bot API sendMessage method.
type TelegramNotifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *pkghttp.Client
}

func NewTelegramNotifier(apiURL, botToken, chatID string, client *pkghttp.Client) *TelegramNotifier {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	if client == nil {
		client = pkghttp.NewClient()
	}
	return &TelegramNotifier{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   client,
	}
}

func (t *TelegramNotifier) Enabled() bool {
	return t.botToken != "" && t.chatID != ""
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Notify(ctx context.Context, subject, body string) error {
	if !t.Enabled() {
		return nil
	}

	var resp sendMessageResponse
	err := t.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken),
		Body:   sendMessageRequest{ChatID: t.chatID, Text: subject + "\n\n" + body},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	return nil
}
