package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"escrow-sol/internal/types"

	"github.com/redis/go-redis/v9"
)

// StatusStore 保存每个 escrow 最近一次观测到的状态，用于判定状态是否发生变化
type StatusStore interface {
	GetStatus(ctx context.Context, escrow types.Pubkey) (TradeStatus, error)
	SetStatus(ctx context.Context, escrow types.Pubkey, status TradeStatus) error
}

const (
	statusPrefix = "escrow:status"

	pendingTTL   = 30 * 24 * time.Hour
	completedTTL = 7 * 24 * time.Hour
)

// RedisStatusStore 管理 Redis 中的 escrow 状态（进程重启后可恢复，避免重复发事件）
type RedisStatusStore struct {
	rdb *redis.Client
}

func NewRedisStatusStore(rdb *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{rdb: rdb}
}

func statusKey(escrow types.Pubkey) string {
	return fmt.Sprintf("%s:%s", statusPrefix, escrow)
}

// statusTTL 已完成的交易不会再变化，保留时间较短
func statusTTL(status TradeStatus) time.Duration {
	if status == StatusCompleted {
		return completedTTL
	}
	return pendingTTL
}

func (r *RedisStatusStore) GetStatus(ctx context.Context, escrow types.Pubkey) (TradeStatus, error) {
	val, err := r.rdb.Get(ctx, statusKey(escrow)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return StatusUnknown, nil
	case err != nil:
		return StatusUnknown, fmt.Errorf("redis get error: %w", err)
	case val == int(StatusPending):
		return StatusPending, nil
	case val == int(StatusCompleted):
		return StatusCompleted, nil
	default:
		return StatusUnknown, nil // 容错处理
	}
}

func (r *RedisStatusStore) SetStatus(ctx context.Context, escrow types.Pubkey, status TradeStatus) error {
	if err := r.rdb.Set(ctx, statusKey(escrow), int(status), statusTTL(status)).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// MemoryStatusStore 进程内状态表，未配置 Redis 时使用
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[types.Pubkey]TradeStatus
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[types.Pubkey]TradeStatus)}
}

func (m *MemoryStatusStore) GetStatus(_ context.Context, escrow types.Pubkey) (TradeStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[escrow], nil
}

func (m *MemoryStatusStore) SetStatus(_ context.Context, escrow types.Pubkey, status TradeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[escrow] = status
	return nil
}
