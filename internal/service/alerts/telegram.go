package alerts

import (
	"context"
	"fmt"
	"strings"

	"Noesis/internal/domain/models"
	httpclient "Noesis/pkg/http"
)

// Telegram broadcasts incident alerts to a chat through the Bot API. The
// caller decides which incidents are alert-worthy; this type only formats
// and delivers.
type Telegram struct {
	client  *httpclient.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegram(client *httpclient.Client, baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{client: client, baseURL: baseURL, token: token, chatID: chatID}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// BroadcastIncident sends one formatted alert message.
func (t *Telegram) BroadcastIncident(ctx context.Context, incident models.Incident) error {
	var resp telegramResponse
	err := t.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token),
		Body: map[string]interface{}{
			"chat_id":                  t.chatID,
			"text":                     formatAlert(incident),
			"disable_web_page_preview": true,
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}

func formatAlert(incident models.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(incident.Severity), incident.Title)
	fmt.Fprintf(&b, "Location: %s\n", incident.Location)
	fmt.Fprintf(&b, "Status: %s | Confidence: %d%% | Sources: %d\n",
		incident.Status, incident.ConfidenceScore, incident.SourceCount)
	if incident.Description != "" {
		fmt.Fprintf(&b, "%s\n", incident.Description)
	}
	for _, src := range incident.Sources {
		fmt.Fprintf(&b, "%s\n", src)
	}
	return strings.TrimRight(b.String(), "\n")
}
