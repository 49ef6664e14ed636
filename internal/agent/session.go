package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionMap caches the agent-side conversation id created for each external
// conversation id. At most one agent conversation exists per external id;
// entries expire on a sliding TTL and the whole map is lost on restart, which
// only costs a fresh agent conversation on the next message.
type SessionMap struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

type sessionEntry struct {
	agentConvID string
	lastSeen    time.Time
}

func NewSessionMap(ttl time.Duration, logger *slog.Logger) *SessionMap {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionMap{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		logger:  logger,
	}
}

// GetOrCreate returns the cached agent conversation id for conversationID,
// calling create at most once even under concurrent requests for the same id.
func (sm *SessionMap) GetOrCreate(ctx context.Context, conversationID string, create func(ctx context.Context) (string, error)) (string, error) {
	if id, ok := sm.lookup(conversationID); ok {
		return id, nil
	}

	v, err, _ := sm.group.Do(conversationID, func() (any, error) {
		// Double-check: another caller may have populated the entry while we
		// were waiting on the flight group.
		if id, ok := sm.lookup(conversationID); ok {
			return id, nil
		}

		id, err := create(ctx)
		if err != nil {
			return "", err
		}

		sm.mu.Lock()
		sm.entries[conversationID] = &sessionEntry{agentConvID: id, lastSeen: time.Now()}
		sm.mu.Unlock()

		sm.logger.Info("created agent conversation",
			"conversation", conversationID,
			"agent_conversation", id,
		)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// lookup returns a live entry and refreshes its sliding expiry.
func (sm *SessionMap) lookup(conversationID string) (string, bool) {
	now := time.Now()

	sm.mu.RLock()
	entry, ok := sm.entries[conversationID]
	sm.mu.RUnlock()
	if !ok {
		return "", false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	entry, ok = sm.entries[conversationID]
	if !ok {
		return "", false
	}
	if now.Sub(entry.lastSeen) > sm.ttl {
		delete(sm.entries, conversationID)
		return "", false
	}
	entry.lastSeen = now
	return entry.agentConvID, true
}

// Forget drops the mapping for one conversation, forcing a fresh agent
// conversation on the next message.
func (sm *SessionMap) Forget(conversationID string) {
	sm.mu.Lock()
	delete(sm.entries, conversationID)
	sm.mu.Unlock()
}

// Len reports the number of live entries.
func (sm *SessionMap) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.entries)
}

// Sweep evicts entries idle longer than the TTL as of now.
func (sm *SessionMap) Sweep(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	evicted := 0
	for id, entry := range sm.entries {
		if now.Sub(entry.lastSeen) > sm.ttl {
			delete(sm.entries, id)
			evicted++
		}
	}
	return evicted
}

// Janitor sweeps expired entries periodically until ctx is cancelled.
func (sm *SessionMap) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sm.Sweep(now); n > 0 {
				sm.logger.Debug("session map sweep", "evicted", n, "remaining", sm.Len())
			}
		}
	}
}
