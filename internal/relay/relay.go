// Package relay orchestrates one webhook call: filter, reply strategies,
// post-back, unconditional acknowledgement.
package relay

import (
	"context"
	"log/slog"
	"strings"

	"chatbridge/internal/domain"
	"chatbridge/internal/event"
)

// ReplyFetcher is what the relay needs from the strategy chain.
type ReplyFetcher interface {
	Name() string
	Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult
}

// Relay drives the pipeline for a single webhook body. Every downstream
// failure is absorbed here: the user gets the fallback text in the worst
// case, and the webhook sender always gets an acknowledgement.
type Relay struct {
	replies  ReplyFetcher
	poster   domain.Poster
	fallback string
	logger   *slog.Logger
}

type Config struct {
	Replies  ReplyFetcher
	Poster   domain.Poster
	Fallback string
	Logger   *slog.Logger
}

func New(cfg Config) *Relay {
	return &Relay{
		replies:  cfg.Replies,
		poster:   cfg.Poster,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
	}
}

// Handle processes one webhook body to completion. It never returns an
// error; the HTTP layer acknowledges with 200 regardless.
func (r *Relay) Handle(ctx context.Context, body []byte) {
	ev, ok := event.Normalize(body)
	if !ok {
		r.logger.Debug("webhook discarded", "body_len", len(body))
		return
	}

	r.logger.Info("relaying message",
		"conversation", ev.ConversationID,
		"content_len", len(ev.Content),
	)

	result := r.replies.Fetch(ctx, ev.ConversationID, ev.Content)
	text := strings.TrimSpace(result.Text)
	if !result.OK || text == "" {
		r.logger.Warn("no reply from any strategy, using fallback",
			"conversation", ev.ConversationID,
			"reason", result.Reason,
		)
		text = r.fallback
	}

	if err := r.poster.Post(ctx, ev.ConversationID, text); err != nil {
		// Best effort: a lost reply beats a duplicate one from sender retries.
		r.logger.Error("post to messaging platform failed",
			"conversation", ev.ConversationID,
			"err", err,
		)
	}
}
