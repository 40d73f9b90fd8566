package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WebhookSender posts outbound messages to the chat transport's delivery
// endpoint. The transport itself (formatting, rendering, retries on its
// side) is outside this core.
type WebhookSender struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewWebhookSender(url string, logger zerolog.Logger) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "webhook_sender").Logger(),
	}
}

type webhookPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (w *WebhookSender) Send(ctx context.Context, actorRef, text string) error {
	body, err := json.Marshal(webhookPayload{To: actorRef, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes outbound messages to the log. Used when no delivery
// endpoint is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_sender").Logger()}
}

func (l *LogSender) Send(_ context.Context, actorRef, text string) error {
	l.logger.Info().Str("to", actorRef).Str("text", text).Msg("outbound message")
	return nil
}
