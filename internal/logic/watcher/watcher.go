package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"escrow-sol/internal/cache"
	"escrow-sol/internal/client"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/logic/dispatcher"
	"escrow-sol/internal/logic/tracker"
	"escrow-sol/internal/mq"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"
)

// EscrowReader 读取链上 escrow 记录与 token 余额，由 client.EscrowClient 实现
type EscrowReader interface {
	GetEscrow(ctx context.Context, addr types.Pubkey) (*escrow.Record, error)
	GetTokenAmount(ctx context.Context, addr types.Pubkey) (uint64, error)
}

// Publisher 发送一批 Kafka 消息，由 mq.KafkaPublisher 实现
type Publisher interface {
	Publish(ctx context.Context, jobs []*mq.KafkaJob) error
}

var (
	_ EscrowReader = (*client.EscrowClient)(nil)
	_ Publisher    = (*mq.KafkaPublisher)(nil)
)

type Options struct {
	Escrows      []types.Pubkey
	PollInterval time.Duration
	Topic        string
	Partitions   int
}

// Watcher 定期轮询一组 escrow 记录账户：
//   - 记录已初始化 → Pending，发送 Initialized 事件；
//   - 曾为 Pending 的记录账户消失 → Completed，发送 Completed 事件。
//
// 状态变化由 tracker 判定，重复观测不会重复发事件。
type Watcher struct {
	reader    EscrowReader
	tracker   *tracker.TradeTracker
	publisher Publisher // 为 nil 时只记录状态
	snapshots *cache.EscrowCache
	opts      Options
	now       func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewWatcher(reader EscrowReader, tr *tracker.TradeTracker, publisher Publisher, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Watcher{
		reader:    reader,
		tracker:   tr,
		publisher: publisher,
		snapshots: cache.NewEscrowCache(),
		opts:      opts,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Watcher) Start() {
	defer close(w.done)
	logger.Infof("[watcher] watching %d escrow accounts every %v", len(w.opts.Escrows), w.opts.PollInterval)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		w.pollWithTimeout()
		select {
		case <-ticker.C:
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
}

func (w *Watcher) pollWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.PollInterval)
	defer cancel()
	if err := w.PollOnce(ctx); err != nil {
		logger.Warnf("[watcher] poll failed: %v", err)
	}
}

// change 一次待提交的状态变化
type change struct {
	record *tracker.TradeRecord
	event  *core.Event
}

// PollOnce 观测所有 escrow 一次，发布本轮产生的状态变更事件。
// 事件全部发送成功后才提交状态，发送失败的变化会在下一轮重新产生（至少一次）。
func (w *Watcher) PollOnce(ctx context.Context) error {
	var changes []change
	for _, addr := range w.opts.Escrows {
		c, err := w.observe(ctx, addr)
		if err != nil {
			logger.Warnf("[watcher] observe escrow %s failed: %v", addr, err)
			continue
		}
		if c != nil {
			changes = append(changes, *c)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	if err := w.publish(ctx, changes); err != nil {
		return err
	}

	for _, c := range changes {
		if _, _, err := w.tracker.Transition(ctx, c.record); err != nil {
			logger.Errorf("[watcher] commit escrow %s status %s failed: %v", c.record.Escrow, c.record.Status, err)
			continue
		}
		if c.record.Status == tracker.StatusCompleted {
			w.snapshots.Delete(c.record.Escrow)
		}
		logger.Infof("[watcher] escrow %s -> %s", c.record.Escrow, c.record.Status)
	}
	return nil
}

func (w *Watcher) publish(ctx context.Context, changes []change) error {
	if w.publisher == nil {
		return nil
	}
	events := make([]*core.Event, len(changes))
	for i, c := range changes {
		events[i] = c.event
	}
	jobs, err := dispatcher.BuildEscrowKafkaJobs(w.opts.Topic, w.opts.Partitions, events)
	if err != nil {
		return err
	}
	return w.publisher.Publish(ctx, jobs)
}

// observe 读取单个 escrow，与已记录状态不同时返回待提交的变化
func (w *Watcher) observe(ctx context.Context, addr types.Pubkey) (*change, error) {
	observedAt := w.now().UnixMilli()

	record, err := w.reader.GetEscrow(ctx, addr)
	switch {
	case errors.Is(err, client.ErrAccountNotFound):
		return w.observeClosed(ctx, addr, observedAt)
	case err != nil:
		return nil, err
	case !record.IsInitialized():
		return nil, nil // 账户已创建但尚未 InitEscrow
	}

	holdingAmount, err := w.reader.GetTokenAmount(ctx, record.HoldingAccountPubkey)
	if err != nil {
		logger.Warnf("[watcher] read holding account %s failed: %v", record.HoldingAccountPubkey, err)
	}

	snapshot := core.NewEscrowEvent(addr, record, holdingAmount, observedAt)
	w.snapshots.Put(snapshot)

	prev, err := w.tracker.Status(ctx, addr)
	if err != nil {
		return nil, err
	}
	if prev == tracker.StatusPending {
		return nil, nil
	}
	return newChange(snapshot, tracker.StatusPending, core.EventEscrowInitialized), nil
}

// observeClosed 记录账户不存在：只有此前处于 Pending 的交易才视为完成
func (w *Watcher) observeClosed(ctx context.Context, addr types.Pubkey, observedAt int64) (*change, error) {
	prev, err := w.tracker.Status(ctx, addr)
	if err != nil {
		return nil, err
	}
	if prev != tracker.StatusPending {
		return nil, nil
	}

	snapshot, ok := w.snapshots.Get(addr)
	if !ok {
		// 进程重启后只有状态表里的 Pending，没有快照
		snapshot = &core.EscrowEvent{Version: core.EventVersion, Escrow: addr}
	}
	snapshot.HoldingAmount = 0
	snapshot.ObservedAt = observedAt
	return newChange(snapshot, tracker.StatusCompleted, core.EventEscrowCompleted), nil
}

func newChange(snapshot *core.EscrowEvent, status tracker.TradeStatus, eventType core.EventType) *change {
	key := snapshot.Escrow
	return &change{
		record: &tracker.TradeRecord{
			Escrow:             snapshot.Escrow,
			Initializer:        snapshot.Initializer,
			HoldingAccount:     snapshot.HoldingAccount,
			InitializerReceive: snapshot.InitializerReceive,
			ExpectedAmount:     snapshot.ExpectedAmount,
			HoldingAmount:      snapshot.HoldingAmount,
			Status:             status,
			ObservedAt:         snapshot.ObservedAt,
		},
		event: &core.Event{
			EventType: eventType,
			Key:       key[:],
			Payload:   snapshot,
		},
	}
}
