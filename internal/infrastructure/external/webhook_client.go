package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxDiscordContentLength   = 2000
	telegramSendMessageURLFmt = "https://api.telegram.org/bot%s/sendMessage"
)

// DiscordWebhookClient posts to a Discord incoming webhook. Both it and
// TelegramBotClient return a boolean success and never propagate errors
// beyond a log entry — a failed side-channel post must not fail
// the publish cycle.
type DiscordWebhookClient struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDiscordWebhookClient constructs a DiscordWebhookClient.
func NewDiscordWebhookClient(timeout time.Duration, logger *slog.Logger) *DiscordWebhookClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordWebhookClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "discord_webhook")),
	}
}

// Send posts text to the configured Discord webhook URL.
func (c *DiscordWebhookClient) Send(ctx context.Context, webhookURL, text string) bool {
	if len(text) > maxDiscordContentLength {
		text = text[:maxDiscordContentLength]
	}

	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		c.logger.Warn("discord payload encode failed", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn("discord request build failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("discord post failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		c.logger.Warn("discord post returned non-2xx", "status", resp.StatusCode)
	}
	return success
}

// TelegramBotClient posts to the standard Telegram Bot API sendMessage
// endpoint.
type TelegramBotClient struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegramBotClient constructs a TelegramBotClient.
func NewTelegramBotClient(timeout time.Duration, logger *slog.Logger) *TelegramBotClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramBotClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "telegram_bot")),
	}
}

// Send posts text to the given chat via the Telegram Bot API.
func (c *TelegramBotClient) Send(ctx context.Context, token, chatID, text string) bool {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		c.logger.Warn("telegram payload encode failed", "error", err)
		return false
	}

	reqURL := fmt.Sprintf(telegramSendMessageURLFmt, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn("telegram request build failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("telegram post failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	var decoded struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn("telegram response decode failed", "error", err)
		return false
	}
	if !decoded.OK {
		c.logger.Warn("telegram post not ok", "status", resp.StatusCode)
	}
	return decoded.OK
}

