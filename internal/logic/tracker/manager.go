package tracker

import (
	"context"
	"sync"
	"time"

	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"
)

// TradeTracker 统一封装状态表（Redis）+ 历史库（DB）+ 缓冲，负责判定状态变化与批量落库
type TradeTracker struct {
	status  StatusStore
	history HistoryStore // 为 nil 时不落库
	buffer  *tradeBuffer
}

func NewTradeTracker(status StatusStore, history HistoryStore) *TradeTracker {
	return &TradeTracker{
		status:  status,
		history: history,
		buffer:  newTradeBuffer(),
	}
}

// Status 查询 escrow 最近一次记录的状态
func (t *TradeTracker) Status(ctx context.Context, escrow types.Pubkey) (TradeStatus, error) {
	return t.status.GetStatus(ctx, escrow)
}

// Transition 记录一次观测结果：
//   - 状态未变化，返回 changed=false，不写任何存储；
//   - 状态变化，更新状态表并加入缓冲区，供后续批量写入 DB。
func (t *TradeTracker) Transition(ctx context.Context, rec *TradeRecord) (prev TradeStatus, changed bool, err error) {
	prev, err = t.status.GetStatus(ctx, rec.Escrow)
	if err != nil {
		return StatusUnknown, false, err
	}
	if prev == rec.Status {
		return prev, false, nil
	}

	if err := t.status.SetStatus(ctx, rec.Escrow, rec.Status); err != nil {
		return prev, false, err
	}
	if t.history != nil {
		t.buffer.Add(rec)
	}
	return prev, true, nil
}

// Flush 把缓冲区写入 DB；失败时记录放回缓冲，下次重试
func (t *TradeTracker) Flush(ctx context.Context) error {
	if t.history == nil {
		return nil
	}
	records := t.buffer.Flush()
	if len(records) == 0 {
		return nil
	}
	if err := t.history.BatchUpsertTrades(ctx, records); err != nil {
		t.buffer.Restore(records)
		return err
	}
	logger.Debugf("[tracker] flushed %d trade records", len(records))
	return nil
}

// Restore 用历史库中的快照补齐状态表里缺失的状态，返回补齐的条数。
// 状态表已有记录的 escrow 不覆盖；历史库不支持读取时直接跳过。
func (t *TradeTracker) Restore(ctx context.Context, escrows []types.Pubkey) (int, error) {
	reader, ok := t.history.(HistoryReader)
	if !ok || len(escrows) == 0 {
		return 0, nil
	}
	records, err := reader.GetTrades(ctx, escrows)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, rec := range records {
		cur, err := t.status.GetStatus(ctx, rec.Escrow)
		if err != nil {
			return restored, err
		}
		if cur != StatusUnknown || rec.Status == StatusUnknown {
			continue
		}
		if err := t.status.SetStatus(ctx, rec.Escrow, rec.Status); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// Prune 删除 before 之前完成的交易历史
func (t *TradeTracker) Prune(ctx context.Context, before time.Time) (int64, error) {
	pruner, ok := t.history.(HistoryPruner)
	if !ok {
		return 0, nil
	}
	return pruner.DeleteCompletedBefore(ctx, before)
}

// Pending 返回尚未落库的记录数
func (t *TradeTracker) Pending() int {
	return t.buffer.Len()
}

const pruneInterval = time.Hour

// FlushService 以固定间隔调用 Flush，配置了保留期时每小时清理一次过期历史。实现 go-zero service.Service
type FlushService struct {
	tracker   *TradeTracker
	interval  time.Duration
	retention time.Duration // <=0 表示不清理
	now       func() time.Time
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
}

func NewFlushService(tracker *TradeTracker, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &FlushService{
		tracker:  tracker,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithRetention 设置已完成交易在历史库中的保留时长，需在 Start 之前调用
func (s *FlushService) WithRetention(retention time.Duration) *FlushService {
	s.retention = retention
	return s
}

func (s *FlushService) Start() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var pruneC <-chan time.Time
	if s.retention > 0 {
		pruneTicker := time.NewTicker(pruneInterval)
		defer pruneTicker.Stop()
		pruneC = pruneTicker.C
		s.prune()
	}

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-pruneC:
			s.prune()
		case <-s.stopChan:
			s.flush() // 退出前尽量落库
			return
		}
	}
}

func (s *FlushService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *FlushService) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if err := s.tracker.Flush(ctx); err != nil {
		logger.Errorf("[tracker] flush failed, %d records kept for retry: %v", s.tracker.Pending(), err)
	}
}

func (s *FlushService) prune() {
	if s.retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	before := s.now().Add(-s.retention)
	n, err := s.tracker.Prune(ctx, before)
	if err != nil {
		logger.Warnf("[tracker] prune trades completed before %s failed: %v", before.Format(time.RFC3339), err)
		return
	}
	if n > 0 {
		logger.Infof("[tracker] pruned %d completed trades before %s", n, before.Format(time.RFC3339))
	}
}
