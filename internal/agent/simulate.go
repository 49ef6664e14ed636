package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatbridge/internal/domain"
)

// simulateMaxTurns caps the simulated exchange at one user turn and one
// agent turn.
const simulateMaxTurns = 2

// Simulate asks the agent service to run a short simulated conversation whose
// first user turn is the real user message, then lifts the agent's turn out
// of the transcript. Used as the fallback when streaming is unavailable.
type Simulate struct {
	apiBase string
	apiKey  string
	agentID string
	client  *http.Client
	logger  *slog.Logger
}

type SimulateConfig struct {
	APIBase string
	APIKey  string
	AgentID string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewSimulate(cfg SimulateConfig) *Simulate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Simulate{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		agentID: cfg.AgentID,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

func (s *Simulate) Name() string { return "simulate" }

func (s *Simulate) Healthy(ctx context.Context) error {
	if s.apiKey == "" || s.agentID == "" {
		return fmt.Errorf("simulate: agent API key or agent id not configured")
	}
	return nil
}

type simulateRequest struct {
	Spec simulateSpec `json:"simulation_specification"`
}

type simulateSpec struct {
	FirstUserMessage string `json:"first_user_message"`
	MaxTurns         int    `json:"max_turns"`
}

type simulateResponse struct {
	SimulatedConversation []simulatedTurn `json:"simulated_conversation"`
}

type simulatedTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

func (s *Simulate) Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult {
	url := fmt.Sprintf("%s/v1/convai/agents/%s/simulate-conversation", s.apiBase, s.agentID)

	status, body, err := postJSON(ctx, s.client, url, s.apiKey, simulateRequest{
		Spec: simulateSpec{FirstUserMessage: content, MaxTurns: simulateMaxTurns},
	})
	if err != nil {
		s.logger.Warn("simulate request failed", "conversation", conversationID, "err", err)
		return domain.ReplyFail(domain.FailTransport)
	}
	if status >= 400 {
		s.logger.Warn("simulate returned error status", "conversation", conversationID, "status", status)
		return domain.ReplyFail(domain.FailStatus)
	}

	var resp simulateResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.SimulatedConversation == nil {
		s.logger.Warn("simulate returned no turn list", "conversation", conversationID)
		return domain.ReplyFail(domain.FailMissingField)
	}

	for _, turn := range resp.SimulatedConversation {
		if turn.Role != "agent" {
			continue
		}
		if msg := strings.TrimSpace(turn.Message); msg != "" {
			return domain.ReplyOK(msg)
		}
	}

	return domain.ReplyFail(domain.FailEmptyReply)
}
