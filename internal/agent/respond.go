package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chatbridge/internal/domain"
)

// Respond is the one-shot strategy: a single POST to the agent's respond
// endpoint with the user text, no conversation state on either side.
type Respond struct {
	apiBase string
	apiKey  string
	agentID string
	client  *http.Client
	logger  *slog.Logger
}

type RespondConfig struct {
	APIBase string
	APIKey  string
	AgentID string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewRespond(cfg RespondConfig) *Respond {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Respond{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		agentID: cfg.AgentID,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

func (r *Respond) Name() string { return "respond" }

func (r *Respond) Healthy(ctx context.Context) error {
	if r.apiKey == "" || r.agentID == "" {
		return fmt.Errorf("respond: agent API key or agent id not configured")
	}
	return nil
}

func (r *Respond) Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult {
	url := fmt.Sprintf("%s/v1/agents/%s/respond", r.apiBase, r.agentID)

	status, body, err := postJSON(ctx, r.client, url, r.apiKey, map[string]string{"input": content})
	if err != nil {
		r.logger.Warn("respond request failed", "conversation", conversationID, "err", err)
		return domain.ReplyFail(domain.FailTransport)
	}
	if status >= 400 {
		r.logger.Warn("respond returned error status", "conversation", conversationID, "status", status)
		return domain.ReplyFail(domain.FailStatus)
	}

	reply := extractReply(body)
	if reply == "" {
		r.logger.Warn("respond returned no usable reply field", "conversation", conversationID)
		return domain.ReplyFail(domain.FailMissingField)
	}

	return domain.ReplyOK(reply)
}
