package tracker

import (
	"escrow-sol/internal/types"
)

// TradeStatus 表示一笔 escrow 交易的状态（统一 Redis 与 DB 编码）
type TradeStatus int

const (
	StatusUnknown   TradeStatus = 0 // 从未观测到
	StatusPending   TradeStatus = 1 // 记录已初始化，等待 taker
	StatusCompleted TradeStatus = 2 // 记录账户已关闭
)

func (s TradeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TradeRecord 表示一条待写入 DB 的交易状态快照
type TradeRecord struct {
	Escrow             types.Pubkey
	Initializer        types.Pubkey
	HoldingAccount     types.Pubkey
	InitializerReceive types.Pubkey
	ExpectedAmount     uint64
	HoldingAmount      uint64
	Status             TradeStatus
	ObservedAt         int64 // Unix 毫秒
}
