package domain

import (
	"encoding/json"
	"strconv"
)

type MessageType string

const (
	MessageIncoming MessageType = "incoming"
	MessageOutgoing MessageType = "outgoing"
)

// InboundEvent is a normalized "message created" webhook event.
// Only events that survive the filter rules are ever represented as one.
type InboundEvent struct {
	EventName      string
	MessageType    MessageType
	Content        string
	ConversationID string
}

// FlexID is a string identifier that can unmarshal from either a JSON string
// or a JSON number (Chatwoot sends conversation ids as numbers).
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(strconv.FormatInt(int64(n), 10))
	return nil
}

func (f FlexID) String() string { return string(f) }
