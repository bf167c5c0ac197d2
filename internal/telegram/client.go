// Package telegram speaks the Telegram Bot API: an outbound client with
// retries, a webhook receiver, and a long-poll fallback for environments
// without a public HTTPS endpoint. Both inbound paths feed the booking
// dialogue and share one update log so no update runs twice.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/artchaos/booking-platform/pkg/logging"
)

const (
	defaultBaseURL     = "https://api.telegram.org"
	defaultTimeout     = 10 * time.Second
	defaultPollTimeout = 30 * time.Second
)

// Config controls how the Bot API client behaves.
type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	PollTimeout time.Duration // server-side hold for getUpdates long polls
	MaxRetries  int
	Backoff     time.Duration
	HTTPClient  *http.Client // overrides Timeout and PollTimeout when set
	Logger      *logging.Logger
}

// Client wraps the Bot API methods the studio needs.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	pollClient  *http.Client
	pollTimeout time.Duration
	maxRetries  int
	backoff     time.Duration
	logger      *logging.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	httpClient := cfg.HTTPClient
	pollClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
		// The poll client needs headroom past the server-side hold.
		pollClient = &http.Client{Timeout: pollTimeout + 10*time.Second}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:     baseURL,
		token:       cfg.Token,
		httpClient:  httpClient,
		pollClient:  pollClient,
		pollTimeout: pollTimeout,
		maxRetries:  maxRetries,
		backoff:     backoff,
		logger:      logger,
	}, nil
}

// SendMessage sends a text message, optionally replacing the chat's reply
// keyboard with the given label rows.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("telegram: message text required")
	}
	payload := sendMessagePayload{ChatID: chatID, Text: text}
	if len(keyboard) > 0 {
		payload.ReplyMarkup = markupFromRows(keyboard)
	}
	_, err := c.invoke(ctx, c.httpClient, "sendMessage", payload)
	return err
}

// SendText sends a plain message without touching the chat's keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.SendMessage(ctx, chatID, text, nil)
}

// GetUpdates long-polls the Bot API for new updates starting at offset.
// Requesting offset acknowledges everything below it.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := struct {
		Offset         int64    `json:"offset,omitempty"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{
		Offset:         offset,
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}
	data, err := c.invoke(ctx, c.pollClient, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

// SetWebhook points the Bot API at our webhook URL. The secret token comes
// back on every delivery in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("telegram: webhook url required")
	}
	payload := struct {
		URL            string   `json:"url"`
		SecretToken    string   `json:"secret_token,omitempty"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{URL: url, SecretToken: secretToken, AllowedUpdates: []string{"message"}}
	_, err := c.invoke(ctx, c.httpClient, "setWebhook", payload)
	return err
}

// DeleteWebhook switches the bot back to long polling.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	payload := struct {
		DropPendingUpdates bool `json:"drop_pending_updates"`
	}{DropPendingUpdates: dropPending}
	_, err := c.invoke(ctx, c.httpClient, "deleteWebhook", payload)
	return err
}

type sendMessagePayload struct {
	ChatID      int64                `json:"chat_id"`
	Text        string               `json:"text"`
	ReplyMarkup *ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// APIError is a Bot API refusal ("ok": false).
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("telegram: api error %d", e.Code)
}

// invoke posts one Bot API method call and unwraps the response envelope.
// Error messages carry the method name, never the full URL, so the bot token
// stays out of logs.
func (c *Client) invoke(ctx context.Context, httpClient *http.Client, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s payload: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("telegram: build %s request: %w", method, err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("telegram: %s: %w", method, err)
			}
			lastErr = err
			c.logRetry(method, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("telegram: read %s response: %w", method, readErr)
		}
		var env apiResponse
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
		}
		if env.OK {
			return env.Result, nil
		}
		apiErr := &APIError{Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if attempt < c.maxRetries && shouldRetry(apiErr.Code, nil) {
			lastErr = apiErr
			c.logRetry(method, attempt, apiErr.Code, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("telegram: %s failed without response", method)
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(method string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("telegram retry",
		"method", method,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}
