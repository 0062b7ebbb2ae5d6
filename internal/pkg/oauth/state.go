package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix = "oauth:state:"
	stateTTL       = 10 * time.Minute
)

// StateStore 基于 Redis 的 OAuth state 存储，防 CSRF
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// New 生成并保存一个随机 state
func (s *StateStore) New(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// Verify 校验 state 并一次性消费
func (s *StateStore) Verify(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	n, err := s.rdb.Del(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		return false, fmt.Errorf("failed to verify state: %w", err)
	}
	return n > 0, nil
}
