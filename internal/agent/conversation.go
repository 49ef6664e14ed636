package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chatbridge/internal/domain"
)

// Conversation is the stateful strategy: it lazily creates an agent-side
// conversation per external conversation id, then sends each user message
// into it.
type Conversation struct {
	apiBase  string
	apiKey   string
	agentID  string
	client   *http.Client
	sessions *SessionMap
	logger   *slog.Logger
}

type ConversationConfig struct {
	APIBase  string
	APIKey   string
	AgentID  string
	Timeout  time.Duration
	Sessions *SessionMap
	Logger   *slog.Logger
}

func NewConversation(cfg ConversationConfig) *Conversation {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionMap(0, cfg.Logger)
	}
	return &Conversation{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		agentID:  cfg.AgentID,
		client:   &http.Client{Timeout: cfg.Timeout},
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
	}
}

func (c *Conversation) Name() string { return "conversation" }

func (c *Conversation) Healthy(ctx context.Context) error {
	if c.apiKey == "" || c.agentID == "" {
		return fmt.Errorf("conversation: agent API key or agent id not configured")
	}
	return nil
}

func (c *Conversation) Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult {
	agentConvID, err := c.sessions.GetOrCreate(ctx, conversationID, c.createConversation)
	if err != nil {
		c.logger.Warn("agent conversation create failed", "conversation", conversationID, "err", err)
		return domain.ReplyFail(domain.FailTransport)
	}

	url := fmt.Sprintf("%s/v1/convai/conversations/%s/messages", c.apiBase, agentConvID)
	status, body, err := postJSON(ctx, c.client, url, c.apiKey, map[string]string{
		"role":    "user",
		"content": content,
	})
	if err != nil {
		c.logger.Warn("conversation message failed", "conversation", conversationID, "err", err)
		return domain.ReplyFail(domain.FailTransport)
	}
	if status >= 400 {
		c.logger.Warn("conversation message error status",
			"conversation", conversationID,
			"agent_conversation", agentConvID,
			"status", status,
		)
		return domain.ReplyFail(domain.FailStatus)
	}

	reply := extractReply(body)
	if reply == "" {
		return domain.ReplyFail(domain.FailMissingField)
	}
	return domain.ReplyOK(reply)
}

// createConversation opens a new agent-side conversation for this agent.
func (c *Conversation) createConversation(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/v1/convai/conversations", c.apiBase)
	status, body, err := postJSON(ctx, c.client, url, c.apiKey, map[string]string{"agent_id": c.agentID})
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if status >= 400 {
		return "", fmt.Errorf("create conversation: status %d", status)
	}

	var created struct {
		ConversationID string `json:"conversation_id"`
		ID             string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("create conversation: decode: %w", err)
	}

	id := created.ConversationID
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return "", fmt.Errorf("create conversation: response carries no id")
	}
	return id, nil
}
