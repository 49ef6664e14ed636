package agent

import (
	"encoding/json"
	"strings"
)

// replyEnvelope covers the response shapes the one-shot agent endpoints return.
type replyEnvelope struct {
	AssistantResponse string         `json:"assistant_response"`
	Reply             string         `json:"reply"`
	Text              string         `json:"text"`
	Message           string         `json:"message"`
	Messages          []replyMessage `json:"messages"`
}

type replyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Text    string `json:"text"`
}

// extractReply pulls the agent's answer out of a response body, preferring
// assistant_response, then reply/text/message, then the last assistant entry
// of a messages array. Returns "" when nothing usable is present.
func extractReply(body []byte) string {
	var env replyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	for _, candidate := range []string{env.AssistantResponse, env.Reply, env.Text, env.Message} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}

	for i := len(env.Messages) - 1; i >= 0; i-- {
		m := env.Messages[i]
		if m.Role != "assistant" {
			continue
		}
		text := m.Content
		if text == "" {
			text = m.Text
		}
		if s := strings.TrimSpace(text); s != "" {
			return s
		}
	}

	return ""
}
