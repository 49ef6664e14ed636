package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatbridge/internal/domain"
)

var testUpgrader = websocket.Upgrader{}

// streamServer runs handler inside a websocket test server and returns the
// ws:// URL to dial.
func streamServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// readFrames consumes the session_start and user_message frames and returns
// the user content.
func readFrames(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	var start map[string]any
	if err := conn.ReadJSON(&start); err != nil {
		t.Errorf("read session_start: %v", err)
		return ""
	}
	if start["type"] != "session_start" {
		t.Errorf("expected session_start first, got %v", start["type"])
	}

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Errorf("read user_message: %v", err)
		return ""
	}
	if msg["type"] != "user_message" {
		t.Errorf("expected user_message second, got %v", msg["type"])
	}
	content, _ := msg["content"].(string)
	return content
}

func TestStream_AccumulatesPartsUntilCompletion(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		readFrames(t, conn)
		conn.WriteJSON(map[string]string{"type": "response_part", "text": "Hel"})
		conn.WriteJSON(map[string]string{"type": "response_part", "text": "lo"})
		conn.WriteJSON(map[string]string{"type": "response_completed"})
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if !result.OK || result.Text != "Hello" {
		t.Fatalf("expected accumulated 'Hello', got %+v", result)
	}
}

func TestStream_CompletionFrameCarriesText(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		readFrames(t, conn)
		conn.WriteJSON(map[string]string{"type": "response_completed", "text": "full answer"})
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if !result.OK || result.Text != "full answer" {
		t.Fatalf("expected 'full answer', got %+v", result)
	}
}

func TestStream_InlineAgentMessageResolves(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		content := readFrames(t, conn)
		if content != "what time" {
			t.Errorf("expected user content forwarded, got %q", content)
		}
		conn.WriteJSON(map[string]string{"type": "message", "role": "agent", "message": "noon"})
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "what time")
	if !result.OK || result.Text != "noon" {
		t.Fatalf("expected 'noon', got %+v", result)
	}
}

func TestStream_IgnoresUnknownAndMalformedFrames(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		readFrames(t, conn)
		conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		conn.WriteJSON(map[string]string{"type": "ping"})
		conn.WriteJSON(map[string]string{"type": "response_part", "delta": "still works"})
		conn.WriteJSON(map[string]string{"type": "response_done"})
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if !result.OK || result.Text != "still works" {
		t.Fatalf("expected 'still works', got %+v", result)
	}
}

func TestStream_ClosedWithoutResult(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		readFrames(t, conn)
		conn.WriteJSON(map[string]string{"type": "response_part", "text": "partial"})
		// close before any completion frame
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK {
		t.Fatal("expected failure when the socket closes mid-stream")
	}
	if result.Reason != domain.FailClosed {
		t.Fatalf("expected %q, got %q", domain.FailClosed, result.Reason)
	}
}

func TestStream_Timeout(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		readFrames(t, conn)
		time.Sleep(500 * time.Millisecond)
	})

	strat := NewStream(StreamConfig{URL: url, AgentID: "agent-1", Timeout: 100 * time.Millisecond, Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK {
		t.Fatal("expected failure on timeout")
	}
	if result.Reason != domain.FailTimeout {
		t.Fatalf("expected %q, got %q", domain.FailTimeout, result.Reason)
	}
}

func TestStream_DialFailure(t *testing.T) {
	strat := NewStream(StreamConfig{
		URL:     "ws://127.0.0.1:1", // nothing listens here
		AgentID: "agent-1",
		Timeout: time.Second,
		Logger:  testLogger(),
	})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK || result.Reason != domain.FailConnect {
		t.Fatalf("expected %q, got %+v", domain.FailConnect, result)
	}
}

func TestStream_NotConfigured(t *testing.T) {
	strat := NewStream(StreamConfig{Logger: testLogger()})

	result := strat.Fetch(context.Background(), "42", "hi")
	if result.OK || result.Reason != domain.FailNotConfigured {
		t.Fatalf("expected %q, got %+v", domain.FailNotConfigured, result)
	}
}

func TestStreamSession_LateFramesAfterResolutionIgnored(t *testing.T) {
	sess := &streamSession{logger: testLogger()}

	frame := func(raw string) *streamFrame {
		var f streamFrame
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return &f
	}

	sess.handleFrame(frame(`{"type":"response_part","text":"first"}`))
	sess.handleFrame(frame(`{"type":"response_completed"}`))
	if !sess.result.OK || sess.result.Text != "first" {
		t.Fatalf("expected resolution with 'first', got %+v", sess.result)
	}

	// Frames after resolution must not change the outcome.
	sess.handleFrame(frame(`{"type":"response_part","text":" second"}`))
	sess.handleFrame(frame(`{"type":"response_completed"}`))
	if sess.result.Text != "first" {
		t.Fatalf("late frames changed the result to %q", sess.result.Text)
	}
}

func TestStreamSession_EmptyCompletion(t *testing.T) {
	sess := &streamSession{logger: testLogger()}
	sess.handleFrame(&streamFrame{Type: "response_completed"})

	if sess.state != stateResolved {
		t.Fatal("expected completion to resolve the session")
	}
	if sess.result.OK || sess.result.Reason != domain.FailEmptyReply {
		t.Fatalf("expected %q, got %+v", domain.FailEmptyReply, sess.result)
	}
}
