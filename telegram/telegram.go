// Package telegram sends, edits and deletes chat messages via the Bot API.
// Each call is a single attempt: a failed action is logged by the caller and
// abandoned for the cycle, and the next cycle's reconciliation repairs the
// channel.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sender is the transport the poller executes reconciliation actions with.
type Sender interface {
	// Send posts a new message and returns its id. silent suppresses the
	// recipient notification.
	Send(ctx context.Context, text string, silent bool) (int64, error)
	// Edit replaces an existing message's text. Edits never re-notify.
	Edit(ctx context.Context, messageID int64, text string) error
	// Delete removes a message.
	Delete(ctx context.Context, messageID int64) error
}

const defaultAPIBase = "https://api.telegram.org"

// Bot talks to the Telegram Bot API over HTTP.
type Bot struct {
	client  *http.Client
	logger  *slog.Logger
	apiBase string
	token   string
	chatID  string
}

// NewBot creates a Bot API client for one chat.
func NewBot(token, chatID string, logger *slog.Logger) *Bot {
	return &Bot{
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		apiBase: defaultAPIBase,
		token:   token,
		chatID:  chatID,
	}
}

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification"`
}

type editMessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type deleteMessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts a new Markdown message to the chat.
func (b *Bot) Send(ctx context.Context, text string, silent bool) (int64, error) {
	reqBody := sendMessageRequest{
		ChatID:              b.chatID,
		Text:                text,
		ParseMode:           "Markdown",
		DisableNotification: silent,
	}

	resp, err := b.call(ctx, "sendMessage", reqBody)
	if err != nil {
		return 0, err
	}

	b.logger.Info("Message sent", "message_id", resp.Result.MessageID, "silent", silent, "text_length", len(text))
	return resp.Result.MessageID, nil
}

// Edit replaces the text of an existing message.
func (b *Bot) Edit(ctx context.Context, messageID int64, text string) error {
	reqBody := editMessageRequest{
		ChatID:    b.chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: "Markdown",
	}

	if _, err := b.call(ctx, "editMessageText", reqBody); err != nil {
		return err
	}

	b.logger.Info("Message edited", "message_id", messageID, "text_length", len(text))
	return nil
}

// Delete removes a message from the chat.
func (b *Bot) Delete(ctx context.Context, messageID int64) error {
	reqBody := deleteMessageRequest{
		ChatID:    b.chatID,
		MessageID: messageID,
	}

	if _, err := b.call(ctx, "deleteMessage", reqBody); err != nil {
		return err
	}

	b.logger.Info("Message deleted", "message_id", messageID)
	return nil
}

// call performs one Bot API method invocation.
func (b *Bot) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.apiBase, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := b.client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		b.logger.Warn("Telegram API request failed",
			"method", method,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: parse response (HTTP %d): %w", method, resp.StatusCode, err)
	}

	if !parsed.OK {
		b.logger.Warn("Telegram API returned an error",
			"method", method,
			"status_code", resp.StatusCode,
			"description", parsed.Description)
		return nil, fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, parsed.Description)
	}

	b.logger.Debug("Telegram API request completed",
		"method", method,
		"duration_ms", duration.Milliseconds())

	return &parsed, nil
}
