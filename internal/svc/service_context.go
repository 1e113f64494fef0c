package svc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"escrow-sol/internal/client"
	"escrow-sol/internal/config"
	"escrow-sol/internal/logic/tracker"
	"escrow-sol/internal/logic/watcher"
	"escrow-sol/internal/mq"
	"escrow-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 10 * time.Second

// WatcherServiceContext 包含 watcher 进程依赖的资源
type WatcherServiceContext struct {
	Config       config.WatcherServiceConfig
	Client       *client.EscrowClient
	Producer     *kafka.Producer // 未配置 brokers 时为 nil
	Redis        *redis.Client   // 未配置 redis_addr 时为 nil
	DB           *sql.DB         // 未配置 postgres_dsn 时为 nil
	Tracker      *tracker.TradeTracker
	Watcher      *watcher.Watcher
	FlushService *tracker.FlushService
}

// NewWatcherServiceContext 创建 watcher 服务上下文，失败时释放已创建的资源
func NewWatcherServiceContext(c config.WatcherServiceConfig) (_ *WatcherServiceContext, err error) {
	programID, err := c.ProgramConf.Program()
	if err != nil {
		return nil, err
	}
	tokenProgramID, err := c.ProgramConf.TokenProgram()
	if err != nil {
		return nil, err
	}
	escrows, err := c.WatcherConf.EscrowPubkeys()
	if err != nil {
		return nil, err
	}

	ctx := &WatcherServiceContext{
		Config: c,
		Client: client.NewEscrowClient(client.Options{
			Endpoint:       c.RpcConf.Endpoint,
			ProgramID:      programID,
			TokenProgramID: tokenProgramID,
			Timeout:        c.RpcConf.Timeout(),
		}),
	}
	defer func() {
		if err != nil {
			ctx.Close()
		}
	}()

	// 1. 状态表：Redis，未配置时使用内存（重启后会重新发送 Initialized）
	var statusStore tracker.StatusStore = tracker.NewMemoryStatusStore()
	if c.RedisAddr != "" {
		ctx.Redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = ctx.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
		}
		statusStore = tracker.NewRedisStatusStore(ctx.Redis)
	} else {
		logger.Warnf("[svc] redis_addr not set, trade status kept in memory only")
	}

	// 2. 历史库：PostgreSQL
	var history tracker.HistoryStore
	if c.PostgresDSN != "" {
		ctx.DB, err = sql.Open("postgres", c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := tracker.NewDBTradeStore(ctx.DB)
		schemaCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = store.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ensure escrow_trade schema: %w", err)
		}
		history = store
	}

	// 3. Kafka 生产者
	var publisher watcher.Publisher
	if c.KafkaProducerConf.Brokers != "" {
		ctx.Producer, err = mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("[svc] Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		sendTimeout := time.Duration(c.WatcherConf.SendTimeoutMs) * time.Millisecond
		publisher = mq.NewKafkaPublisher(ctx.Producer, sendTimeout)
	} else {
		logger.Warnf("[svc] kafka_producer.brokers not set, events will not be published")
	}

	// 4. 状态跟踪 + 轮询 + 定时落库
	ctx.Tracker = tracker.NewTradeTracker(statusStore, history)
	if history != nil {
		// 状态表丢失（内存模式重启或 Redis key 过期）时从历史库恢复，避免重复发送 Initialized
		restoreCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		restored, restoreErr := ctx.Tracker.Restore(restoreCtx, escrows)
		cancel()
		if restoreErr != nil {
			logger.Warnf("[svc] restore trade status from postgres: %v", restoreErr)
		} else if restored > 0 {
			logger.Infof("[svc] restored %d trade statuses from postgres", restored)
		}
	}
	ctx.Watcher = watcher.NewWatcher(ctx.Client, ctx.Tracker, publisher, watcher.Options{
		Escrows:      escrows,
		PollInterval: time.Duration(c.WatcherConf.PollIntervalMs) * time.Millisecond,
		Topic:        c.KafkaProducerConf.Topics.Escrow,
		Partitions:   c.KafkaProducerConf.Partitions.Escrow,
	})
	ctx.FlushService = tracker.NewFlushService(ctx.Tracker, time.Duration(c.WatcherConf.FlushIntervalSec)*time.Second).
		WithRetention(c.WatcherConf.Retention())

	logger.Infof("[svc] watcher 服务上下文初始化完成, program=%s, escrows=%d", programID, len(escrows))
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *WatcherServiceContext) Close() {
	if ctx.Producer != nil {
		if remaining := ctx.Producer.Flush(int(connectTimeout.Milliseconds())); remaining > 0 {
			logger.Warnf("[svc] %d kafka messages not flushed before close", remaining)
		}
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		if err := ctx.Redis.Close(); err != nil {
			logger.Warnf("[svc] close redis: %v", err)
		}
	}
	if ctx.DB != nil {
		if err := ctx.DB.Close(); err != nil {
			logger.Warnf("[svc] close postgres: %v", err)
		}
	}
}
