package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chatbridge/internal/domain"
)

// defaultStreamTimeout bounds one whole streaming exchange, dial included.
const defaultStreamTimeout = 12 * time.Second

// Stream is the streaming strategy: a bidirectional socket session with the
// agent service. It announces the agent and modalities, sends the user
// message, accumulates response parts, and resolves exactly once on the first
// terminal condition (completion, inline agent message, close, error, or
// timeout).
type Stream struct {
	url     string
	agentID string
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

type StreamConfig struct {
	URL     string
	AgentID string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewStream(cfg StreamConfig) *Stream {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStreamTimeout
	}
	return &Stream{
		url:     cfg.URL,
		agentID: cfg.AgentID,
		timeout: cfg.Timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

func (s *Stream) Name() string { return "stream" }

func (s *Stream) Healthy(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("stream: no streaming endpoint configured")
	}
	return nil
}

func (s *Stream) Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult {
	if s.url == "" {
		return domain.ReplyFail(domain.FailNotConfigured)
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(dialCtx, s.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		s.logger.Warn("stream dial failed", "conversation", conversationID, "err", err)
		return domain.ReplyFail(domain.FailConnect)
	}

	sess := newStreamSession(conn, s.logger)
	result := sess.run(s.agentID, content, time.Now().Add(s.timeout))
	if !result.OK {
		s.logger.Warn("stream session yielded no reply",
			"conversation", conversationID,
			"reason", result.Reason,
		)
	}
	return result
}

// --- session state machine ---

type streamState int

const (
	stateOpen streamState = iota
	stateResolved
)

// streamSession runs one streaming exchange. The state machine has a single
// terminal transition: whichever of completion, inline agent message,
// timeout, close, or transport error fires first resolves the session, and
// every later event is ignored.
type streamSession struct {
	conn   *websocket.Conn
	logger *slog.Logger
	state  streamState
	result domain.ReplyResult
	buf    strings.Builder
}

func newStreamSession(conn *websocket.Conn, logger *slog.Logger) *streamSession {
	return &streamSession{conn: conn, logger: logger}
}

// outgoing frames

type sessionStartFrame struct {
	Type            string   `json:"type"`
	AgentID         string   `json:"agent_id"`
	Modalities      []string `json:"modalities"`
	SubscribeEvents bool     `json:"subscribe_events"`
}

type userMessageFrame struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	Content string `json:"content"`
}

// streamFrame is an incoming frame; the tag is carried as either "type" or
// "event" and the text under whichever field the service chose.
type streamFrame struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Role    string `json:"role"`
	Text    string `json:"text"`
	Delta   string `json:"delta"`
	Content string `json:"content"`
	Message string `json:"message"`
}

func (f *streamFrame) tag() string {
	if f.Type != "" {
		return f.Type
	}
	return f.Event
}

func (f *streamFrame) inlineText() string {
	for _, s := range []string{f.Text, f.Delta, f.Content, f.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (s *streamSession) run(agentID, content string, deadline time.Time) domain.ReplyResult {
	defer s.conn.Close()

	s.conn.SetReadDeadline(deadline)

	if err := s.conn.WriteJSON(sessionStartFrame{
		Type:            "session_start",
		AgentID:         agentID,
		Modalities:      []string{"text"},
		SubscribeEvents: true,
	}); err != nil {
		s.resolveError(err)
		return s.result
	}
	if err := s.conn.WriteJSON(userMessageFrame{
		Type:    "user_message",
		AgentID: agentID,
		Content: content,
	}); err != nil {
		s.resolveError(err)
		return s.result
	}

	for s.state != stateResolved {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.resolveError(err)
			break
		}

		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Debug("ignoring malformed stream frame", "err", err)
			continue
		}
		s.handleFrame(&frame)
	}

	return s.result
}

func (s *streamSession) handleFrame(frame *streamFrame) {
	switch frame.tag() {
	case "response_part", "response_delta":
		s.buf.WriteString(frame.inlineText())

	case "response_completed", "response_done":
		text := strings.TrimSpace(s.buf.String())
		if text == "" {
			text = strings.TrimSpace(frame.inlineText())
		}
		if text == "" {
			s.resolve(domain.ReplyFail(domain.FailEmptyReply))
			return
		}
		s.resolve(domain.ReplyOK(text))

	default:
		// A frame from the agent carrying inline text is a complete
		// single-shot answer.
		if frame.Role == "agent" {
			if text := strings.TrimSpace(frame.inlineText()); text != "" {
				s.resolve(domain.ReplyOK(text))
			}
		}
	}
}

// resolve records the terminal result. Only the first call wins.
func (s *streamSession) resolve(result domain.ReplyResult) {
	if s.state == stateResolved {
		return
	}
	s.state = stateResolved
	s.result = result
}

func (s *streamSession) resolveError(err error) {
	var netErr net.Error
	var closeErr *websocket.CloseError

	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		s.resolve(domain.ReplyFail(domain.FailTimeout))
	case errors.As(err, &closeErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		s.resolve(domain.ReplyFail(domain.FailClosed))
	default:
		s.resolve(domain.ReplyFail(domain.FailTransport))
	}
}
