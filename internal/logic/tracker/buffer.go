package tracker

import (
	"sync"

	"escrow-sol/internal/types"
)

// tradeBuffer 暂存待落库的状态快照；同一 escrow 只保留最后一次
type tradeBuffer struct {
	mu     sync.Mutex
	buffer map[types.Pubkey]*TradeRecord
}

func newTradeBuffer() *tradeBuffer {
	return &tradeBuffer{
		buffer: make(map[types.Pubkey]*TradeRecord),
	}
}

func (b *tradeBuffer) Add(record *TradeRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[record.Escrow] = record
}

// Flush 取出全部记录并清空
func (b *tradeBuffer) Flush() []*TradeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := make([]*TradeRecord, 0, len(b.buffer))
	for _, rec := range b.buffer {
		flushed = append(flushed, rec)
	}
	b.buffer = make(map[types.Pubkey]*TradeRecord)
	return flushed
}

// Restore 把写库失败的记录放回缓冲；期间已有更新的 escrow 保留较新的记录
func (b *tradeBuffer) Restore(records []*TradeRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range records {
		if _, ok := b.buffer[rec.Escrow]; !ok {
			b.buffer[rec.Escrow] = rec
		}
	}
}

func (b *tradeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
