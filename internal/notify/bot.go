package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Button is one tappable action attached to a chat message. Data comes back
// verbatim in the callback when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// BotClient talks to the chat bot HTTP API. A Breaker stops hammering the
// bot API while it is down; retries are left to the task queue.
type BotClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Breaker *resilience.Breaker
}

type sendMessageRequest struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts a text message with optional button rows to a chat.
func (c *BotClient) SendMessage(ctx context.Context, chatID, text string, buttons [][]Button) error {
	payload := sendMessageRequest{ChatID: chatID, Text: text}
	if len(buttons) > 0 {
		payload.ReplyMarkup = &inlineKeyboard{InlineKeyboard: buttons}
	}
	return c.call(ctx, "sendMessage", payload)
}

// AnswerCallback acknowledges a pressed button so the chat client stops its
// loading indicator.
func (c *BotClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

func (c *BotClient) call(ctx context.Context, method string, payload any) error {
	if c == nil || c.BaseURL == "" || c.Token == "" {
		return errors.New("notify: bot client not configured")
	}
	endpoint, err := c.methodURL(method)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", method, err)
	}
	ctx, span := otel.Tracer("notify.BotClient").Start(ctx, "BotClient."+method)
	defer span.End()
	span.SetAttributes(attribute.String("bot.method", method))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = HTTPClient(5000)
	}
	wrapped := resilience.HTTPClient{Client: client, Breaker: c.Breaker, MaxAttempts: 1}
	resp, err := wrapped.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: %s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: read %s response: %w", method, err)
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("notify: %s returned status %d", method, resp.StatusCode)
	}
	if resp.StatusCode >= 300 || !decoded.OK {
		return fmt.Errorf("notify: %s failed: status=%d description=%q", method, resp.StatusCode, decoded.Description)
	}
	return nil
}

func (c *BotClient) methodURL(method string) (string, error) {
	base := strings.TrimRight(c.BaseURL, "/")
	full := fmt.Sprintf("%s/bot%s/%s", base, c.Token, method)
	parsed, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("notify: invalid bot url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", errors.New("notify: bot url must be http or https")
	}
	return full, nil
}

// HTTPClient returns an HTTP client configured for bot API calls.
func HTTPClient(timeoutMs int) *http.Client {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &http.Client{
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		Transport: otelhttp.NewTransport(&http.Transport{}),
	}
}
