package relay

import (
	"context"
	"sync"

	"drat/internal/domain"
)

// MemoryMailbox keeps per-recipient queues in process memory.
type MemoryMailbox struct {
	mu     sync.RWMutex
	queues map[domain.Username][]domain.Envelope
}

func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{queues: make(map[domain.Username][]domain.Envelope)}
}

var _ domain.Mailbox = (*MemoryMailbox)(nil)

func (m *MemoryMailbox) Push(_ context.Context, env domain.Envelope) error {
	m.mu.Lock()
	m.queues[env.To] = append(m.queues[env.To], env)
	m.mu.Unlock()
	return nil
}

// Peek returns up to limit queued envelopes; limit <= 0 returns all.
func (m *MemoryMailbox) Peek(_ context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := m.queues[user]
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}
	return append([]domain.Envelope(nil), q[:limit]...), nil
}

// Drop removes up to count envelopes from the front and reports how many went.
func (m *MemoryMailbox) Drop(_ context.Context, user domain.Username, count int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if count > len(q) {
		count = len(q)
	}
	if count <= 0 {
		return 0, nil
	}
	if count == len(q) {
		delete(m.queues, user)
	} else {
		m.queues[user] = append([]domain.Envelope(nil), q[count:]...)
	}
	return count, nil
}

func (m *MemoryMailbox) Depth(_ context.Context, user domain.Username) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queues[user]), nil
}
