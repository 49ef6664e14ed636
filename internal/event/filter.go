// Package event normalizes raw Chatwoot webhook payloads into inbound events.
package event

import (
	"encoding/json"
	"strings"

	"chatbridge/internal/domain"
)

// eventName is the only Chatwoot event the relay reacts to.
const eventName = "message_created"

// webhookBody mirrors the webhook shape. Chatwoot sometimes nests the real
// event one level down under "data"; both shapes are accepted.
type webhookBody struct {
	Event        string          `json:"event"`
	MessageType  string          `json:"message_type"`
	Content      string          `json:"content"`
	Conversation conversationRef `json:"conversation"`
	Data         *webhookBody    `json:"data,omitempty"`
}

type conversationRef struct {
	ID domain.FlexID `json:"id"`
}

// Normalize parses an arbitrary webhook body and returns the normalized event
// and true when it should be relayed. Malformed JSON, other event names,
// outgoing messages, empty content and missing conversation ids all return
// false. No error is ever raised; discard is silent.
func Normalize(body []byte) (domain.InboundEvent, bool) {
	var raw webhookBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.InboundEvent{}, false
	}

	// Message fields come from the nested object when "data" is present;
	// the top-level event name wins if both carry one.
	inner := &raw
	if raw.Data != nil {
		inner = raw.Data
	}
	name := raw.Event
	if name == "" {
		name = inner.Event
	}

	if name != eventName {
		return domain.InboundEvent{}, false
	}
	if inner.MessageType != string(domain.MessageIncoming) {
		return domain.InboundEvent{}, false
	}

	content := strings.TrimSpace(inner.Content)
	convID := inner.Conversation.ID.String()
	if content == "" || convID == "" {
		return domain.InboundEvent{}, false
	}

	return domain.InboundEvent{
		EventName:      name,
		MessageType:    domain.MessageIncoming,
		Content:        content,
		ConversationID: convID,
	}, true
}
