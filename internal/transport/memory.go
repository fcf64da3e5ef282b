// Package transport holds in-process domain.RelayClient implementations.
package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"drat/internal/domain"
)

// Memory is an in-process relay. Envelopes are stored CBOR-encoded so every
// delivery goes through the same encode/decode path a network hop would.
type Memory struct {
	mu     sync.Mutex
	queues map[domain.Username][][]byte

	rng       *rand.Rand
	dupEvery  int
	sendCount int
}

// MemoryOption configures a Memory relay.
type MemoryOption func(*Memory)

// WithShuffle makes each fetch return the pending queue in a random order
// drawn from seed.
func WithShuffle(seed int64) MemoryOption {
	return func(m *Memory) { m.rng = rand.New(rand.NewSource(seed)) }
}

// WithDuplicates queues every nth sent envelope twice.
func WithDuplicates(every int) MemoryOption {
	return func(m *Memory) { m.dupEvery = every }
}

// NewMemory returns an empty in-process relay.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{queues: make(map[domain.Username][][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ domain.RelayClient = (*Memory)(nil)

// SendMessage queues env for env.To.
func (m *Memory) SendMessage(ctx context.Context, env domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if env.To == "" {
		return fmt.Errorf("send: empty recipient")
	}
	frame, err := cbor.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCount++
	m.queues[env.To] = append(m.queues[env.To], frame)
	if m.dupEvery > 0 && m.sendCount%m.dupEvery == 0 {
		m.queues[env.To] = append(m.queues[env.To], frame)
	}
	return nil
}

// FetchMessages returns up to limit pending envelopes for user without
// removing them; limit <= 0 returns all. AckMessages removes them.
func (m *Memory) FetchMessages(ctx context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if m.rng != nil {
		m.rng.Shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
	}
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}

	out := make([]domain.Envelope, 0, limit)
	for _, frame := range q[:limit] {
		var env domain.Envelope
		if err := cbor.Unmarshal(frame, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		out = append(out, env)
	}
	return out, nil
}

// AckMessages drops the first count pending envelopes for user.
func (m *Memory) AckMessages(ctx context.Context, user domain.Username, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if count > len(q) {
		count = len(q)
	}
	if count <= 0 {
		return nil
	}
	rest := q[count:]
	if len(rest) == 0 {
		delete(m.queues, user)
		return nil
	}
	m.queues[user] = append([][]byte(nil), rest...)
	return nil
}

// Pending reports how many envelopes are queued for user.
func (m *Memory) Pending(user domain.Username) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[user])
}
