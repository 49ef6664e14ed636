package agent

import (
	"context"
	"log/slog"
	"strings"

	"chatbridge/internal/domain"
)

// Chain tries reply strategies in a fixed priority order and stops at the
// first one that produces non-empty text. A failed strategy never aborts the
// chain; when every strategy fails the result carries the last failure
// reason and the caller substitutes its canned fallback.
type Chain struct {
	providers []domain.ReplyProvider
	logger    *slog.Logger
}

func NewChain(providers []domain.ReplyProvider, logger *slog.Logger) *Chain {
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Providers returns the chain members in priority order.
func (c *Chain) Providers() []domain.ReplyProvider {
	return c.providers
}

func (c *Chain) Fetch(ctx context.Context, conversationID, content string) domain.ReplyResult {
	last := domain.ReplyFail(domain.FailNotConfigured)

	for i, p := range c.providers {
		result := p.Fetch(ctx, conversationID, content)
		if result.OK && strings.TrimSpace(result.Text) != "" {
			if i > 0 {
				c.logger.Info("reply obtained from fallback strategy",
					"strategy", p.Name(),
					"attempt", i+1,
				)
			}
			return result
		}

		last = result
		c.logger.Warn("reply strategy failed, trying next",
			"strategy", p.Name(),
			"attempt", i+1,
			"reason", result.Reason,
		)
	}

	return last
}
