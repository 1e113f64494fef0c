package cache

import (
	"sync"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"
)

// EscrowCache 保存每个 escrow 最近一次观测到的快照。
// 记录账户被 Exchange 关闭后链上不再有数据，完成事件只能由最后一次快照补全。
type EscrowCache struct {
	mu        sync.RWMutex
	snapshots map[types.Pubkey]core.EscrowEvent
}

func NewEscrowCache() *EscrowCache {
	return &EscrowCache{
		snapshots: make(map[types.Pubkey]core.EscrowEvent),
	}
}

func (c *EscrowCache) Put(snapshot *core.EscrowEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[snapshot.Escrow] = *snapshot
}

// Get 返回快照副本
func (c *EscrowCache) Get(escrow types.Pubkey) (*core.EscrowEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[escrow]
	if !ok {
		return nil, false
	}
	return &snap, true
}

func (c *EscrowCache) Delete(escrow types.Pubkey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, escrow)
}

func (c *EscrowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}
