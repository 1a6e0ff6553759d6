package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps per-account token lists in Redis lists.
// Appends and removals are single server-side commands, so concurrent
// sign-ins for the same account never lose each other's tokens.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Append pushes value and refreshes the key TTL in one MULTI/EXEC.
func (s *SessionStore) Append(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *SessionStore) Remove(ctx context.Context, key, value string) (int64, error) {
	return s.rdb.LRem(ctx, key, 0, value).Result()
}

func (s *SessionStore) Members(ctx context.Context, key string) ([]string, error) {
	return s.rdb.LRange(ctx, key, 0, -1).Result()
}

func (s *SessionStore) Len(ctx context.Context, key string) (int64, error) {
	return s.rdb.LLen(ctx, key).Result()
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Blacklist records revoked session ids with a TTL equal to the remaining
// lifetime of the token, so entries vanish once they no longer matter.
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

func blacklistKey(id string) string {
	return "blacklist:" + id
}

func (b *Blacklist) Add(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return b.rdb.SetNX(ctx, blacklistKey(id), 1, ttl).Result()
}

func (b *Blacklist) Contains(ctx context.Context, id string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
