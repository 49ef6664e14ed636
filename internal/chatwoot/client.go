// Package chatwoot posts outgoing messages to the Chatwoot conversation API.
package chatwoot

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

// Client posts outgoing messages to a Chatwoot account. Delivery is best
// effort: one attempt, response status logged but never surfaced as an error.
type Client struct {
	baseURL   string
	accountID string
	token     string
	client    *http.Client
	logger    *slog.Logger
}

type Config struct {
	BaseURL   string
	AccountID string
	APIToken  string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		accountID: cfg.AccountID,
		token:     cfg.APIToken,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}
}

// Configured reports whether all Chatwoot settings are present.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.accountID != "" && c.token != ""
}

// Post sends content as an outgoing message on the given conversation. The
// response status is informational only; only transport-level failures are
// returned, and the caller decides whether to swallow them.
func (c *Client) Post(ctx context.Context, conversationID, content string) error {
	if !c.Configured() {
		return fmt.Errorf("chatwoot: client not configured")
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%s/messages",
		c.baseURL, c.accountID, conversationID)

	payload := map[string]string{
		"message_type": "outgoing",
		"content":      content,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.logger.Info("chatwoot post",
		"conversation", conversationID,
		"status", resp.StatusCode,
		"body_len", len(respBody),
	)
	return nil
}
