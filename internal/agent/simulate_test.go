package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatbridge/internal/domain"
)

func TestSimulate_LiftsAgentTurn(t *testing.T) {
	var gotReq simulateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/agents/agent-1/simulate-conversation" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(simulateResponse{
			SimulatedConversation: []simulatedTurn{
				{Role: "user", Message: "what time is it"},
				{Role: "agent", Message: "it is noon"},
			},
		})
	}))
	defer srv.Close()

	strat := NewSimulate(SimulateConfig{APIBase: srv.URL, APIKey: "k", AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "what time is it")
	if !result.OK || result.Text != "it is noon" {
		t.Fatalf("expected 'it is noon', got %+v", result)
	}
	if gotReq.Spec.FirstUserMessage != "what time is it" {
		t.Fatalf("expected user message in spec, got %q", gotReq.Spec.FirstUserMessage)
	}
	if gotReq.Spec.MaxTurns != simulateMaxTurns {
		t.Fatalf("expected max_turns %d, got %d", simulateMaxTurns, gotReq.Spec.MaxTurns)
	}
}

func TestSimulate_SkipsBlankAgentTurns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(simulateResponse{
			SimulatedConversation: []simulatedTurn{
				{Role: "agent", Message: "   "},
				{Role: "agent", Message: "second try"},
			},
		})
	}))
	defer srv.Close()

	strat := NewSimulate(SimulateConfig{APIBase: srv.URL, APIKey: "k", AgentID: "a", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if !result.OK || result.Text != "second try" {
		t.Fatalf("expected 'second try', got %+v", result)
	}
}

func TestSimulate_NoTurnList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	strat := NewSimulate(SimulateConfig{APIBase: srv.URL, APIKey: "k", AgentID: "a", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK || result.Reason != domain.FailMissingField {
		t.Fatalf("expected %q, got %+v", domain.FailMissingField, result)
	}
}

func TestSimulate_NoAgentTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(simulateResponse{
			SimulatedConversation: []simulatedTurn{{Role: "user", Message: "hi"}},
		})
	}))
	defer srv.Close()

	strat := NewSimulate(SimulateConfig{APIBase: srv.URL, APIKey: "k", AgentID: "a", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK || result.Reason != domain.FailEmptyReply {
		t.Fatalf("expected %q, got %+v", domain.FailEmptyReply, result)
	}
}

func TestSimulate_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	strat := NewSimulate(SimulateConfig{APIBase: srv.URL, APIKey: "k", AgentID: "a", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK || result.Reason != domain.FailStatus {
		t.Fatalf("expected %q, got %+v", domain.FailStatus, result)
	}
}
