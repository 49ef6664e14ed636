package domain

import "context"

// FailureReason classifies why a reply strategy produced no answer.
type FailureReason string

const (
	FailConnect       FailureReason = "connect_error"
	FailTimeout       FailureReason = "timeout"
	FailTransport     FailureReason = "transport_error"
	FailClosed        FailureReason = "closed_without_result"
	FailStatus        FailureReason = "http_status"
	FailMissingField  FailureReason = "missing_field"
	FailEmptyReply    FailureReason = "empty_reply"
	FailNotConfigured FailureReason = "not_configured"
)

// ReplyResult is the tagged outcome of one reply strategy. Strategies never
// propagate errors to the caller; they either carry usable text or a reason.
type ReplyResult struct {
	OK     bool
	Text   string
	Reason FailureReason
}

func ReplyOK(text string) ReplyResult {
	return ReplyResult{OK: true, Text: text}
}

func ReplyFail(reason FailureReason) ReplyResult {
	return ReplyResult{Reason: reason}
}

// ReplyProvider is one strategy for obtaining a textual reply from the agent
// service for a given conversation and user message.
type ReplyProvider interface {
	Name() string
	Fetch(ctx context.Context, conversationID, content string) ReplyResult
	Healthy(ctx context.Context) error
}

// Poster delivers the final reply text to the messaging platform.
type Poster interface {
	Post(ctx context.Context, conversationID, content string) error
}
