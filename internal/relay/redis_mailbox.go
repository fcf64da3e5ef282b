package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"drat/internal/domain"
)

const redisKeyPrefix = "drat:mailbox:"

// RedisMailbox keeps one Redis list per recipient, oldest envelope first.
type RedisMailbox struct {
	rdb *redis.Client
}

func NewRedisMailbox(rdb *redis.Client) *RedisMailbox {
	return &RedisMailbox{rdb: rdb}
}

var _ domain.Mailbox = (*RedisMailbox)(nil)

func mailboxKey(user domain.Username) string { return redisKeyPrefix + user.String() }

func (m *RedisMailbox) Push(ctx context.Context, env domain.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := m.rdb.RPush(ctx, mailboxKey(env.To), b).Err(); err != nil {
		return fmt.Errorf("push to %q: %w", env.To, err)
	}
	return nil
}

func (m *RedisMailbox) Peek(ctx context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := m.rdb.LRange(ctx, mailboxKey(user), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("peek %q: %w", user, err)
	}
	out := make([]domain.Envelope, 0, len(raw))
	for _, s := range raw {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, fmt.Errorf("peek %q: decode: %w", user, err)
		}
		out = append(out, env)
	}
	return out, nil
}

// Drop trims count envelopes off the front of the list in one transaction.
func (m *RedisMailbox) Drop(ctx context.Context, user domain.Username, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}
	key := mailboxKey(user)
	var depth *redis.IntCmd
	_, err := m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		depth = p.LLen(ctx, key)
		p.LTrim(ctx, key, int64(count), -1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("drop %q: %w", user, err)
	}
	return min(count, int(depth.Val())), nil
}

func (m *RedisMailbox) Depth(ctx context.Context, user domain.Username) (int, error) {
	n, err := m.rdb.LLen(ctx, mailboxKey(user)).Result()
	if err != nil {
		return 0, fmt.Errorf("depth %q: %w", user, err)
	}
	return int(n), nil
}
