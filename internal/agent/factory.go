package agent

import (
	"log/slog"
	"time"

	"chatbridge/internal/config"
	"chatbridge/internal/domain"
)

// Factory builds reply strategies from configuration.
type Factory struct {
	cfg      config.AgentConfig
	sessions *SessionMap
	logger   *slog.Logger
}

func NewFactory(cfg config.AgentConfig, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		sessions: NewSessionMap(time.Duration(cfg.SessionTTL)*time.Minute, logger),
		logger:   logger,
	}
}

// Sessions exposes the shared conversation-id map (the serve command runs
// its janitor).
func (f *Factory) Sessions() *SessionMap {
	return f.sessions
}

// Chain assembles the configured strategies in priority order. Strategies
// whose endpoints are not configured are skipped with a warning; the chain
// may legitimately end up empty when nothing is configured at all.
func (f *Factory) Chain() *Chain {
	requestTimeout := time.Duration(f.cfg.RequestTimeout) * time.Second
	streamTimeout := time.Duration(f.cfg.StreamTimeout) * time.Second

	var providers []domain.ReplyProvider
	for _, name := range f.cfg.Strategies {
		switch name {
		case "stream":
			if f.cfg.StreamURL == "" {
				f.logger.Warn("stream strategy configured but no streaming endpoint set, skipping")
				continue
			}
			providers = append(providers, NewStream(StreamConfig{
				URL:     f.cfg.StreamURL,
				AgentID: f.cfg.AgentID,
				Timeout: streamTimeout,
				Logger:  f.logger,
			}))
		case "simulate":
			providers = append(providers, NewSimulate(SimulateConfig{
				APIBase: f.cfg.APIBase,
				APIKey:  f.cfg.APIKey,
				AgentID: f.cfg.AgentID,
				Timeout: requestTimeout,
				Logger:  f.logger,
			}))
		case "respond":
			providers = append(providers, NewRespond(RespondConfig{
				APIBase: f.cfg.APIBase,
				APIKey:  f.cfg.APIKey,
				AgentID: f.cfg.AgentID,
				Timeout: requestTimeout,
				Logger:  f.logger,
			}))
		case "conversation":
			providers = append(providers, NewConversation(ConversationConfig{
				APIBase:  f.cfg.APIBase,
				APIKey:   f.cfg.APIKey,
				AgentID:  f.cfg.AgentID,
				Timeout:  requestTimeout,
				Sessions: f.sessions,
				Logger:   f.logger,
			}))
		default:
			f.logger.Warn("unknown reply strategy in config, skipping", "strategy", name)
		}
	}

	return NewChain(providers, f.logger)
}
