package config

import (
	"fmt"
	"os"
	"time"

	"escrow-sol/internal/mq"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 节点配置
type RpcConfig struct {
	Endpoint   string `yaml:"endpoint"`    // 例如 https://api.devnet.solana.com
	TimeoutSec int    `yaml:"timeout_sec"` // 单次请求超时（秒）
}

func (c *RpcConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ProgramConfig 链上程序地址
type ProgramConfig struct {
	ProgramID      string `yaml:"program_id"`       // escrow 程序地址
	TokenProgramID string `yaml:"token_program_id"` // 为空时使用标准 SPL Token Program
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Escrow string `yaml:"escrow"` // escrow 状态变更事件的 topic
	} `yaml:"topics"`

	Partitions struct {
		Escrow int `yaml:"escrow"` // escrow topic 的分区数
	} `yaml:"partitions"`
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicOption{
			{Topic: c.Topics.Escrow, Partitions: c.Partitions.Escrow},
		},
	}
}

// WatcherConfig 轮询与落库节奏（单位见字段名）
type WatcherConfig struct {
	Escrows          []string `yaml:"escrows"`            // 需要跟踪的 escrow 记录账户
	PollIntervalMs   int      `yaml:"poll_interval_ms"`   // 轮询间隔
	FlushIntervalSec int      `yaml:"flush_interval_sec"` // 状态变更批量写入 DB 的间隔
	SendTimeoutMs    int      `yaml:"send_timeout_ms"`    // 单条事件发送到 Kafka 并等待 ack 的超时时间
	RetentionDays    int      `yaml:"retention_days"`     // 已完成交易在 DB 中的保留天数，0 表示永久保留
}

func (c *WatcherConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// WatcherServiceConfig 是 watcher 进程的主配置
type WatcherServiceConfig struct {
	LogConf           LogConfig           `yaml:"logger"`
	RpcConf           RpcConfig           `yaml:"rpc"`
	ProgramConf       ProgramConfig       `yaml:"program"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`
	WatcherConf       WatcherConfig       `yaml:"watcher"`

	RedisAddr   string `yaml:"redis_addr"`   // Redis 地址，为空时状态只保存在内存
	PostgresDSN string `yaml:"postgres_dsn"` // PostgreSQL 数据源，为空时不落库
}

// Validate 检查必填项，并解析出地址
func (c *WatcherServiceConfig) Validate() error {
	if c.RpcConf.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint is required")
	}
	if _, err := c.ProgramConf.Program(); err != nil {
		return err
	}
	if _, err := c.ProgramConf.TokenProgram(); err != nil {
		return err
	}
	if _, err := c.WatcherConf.EscrowPubkeys(); err != nil {
		return err
	}
	if c.WatcherConf.RetentionDays < 0 {
		return fmt.Errorf("watcher.retention_days must not be negative")
	}
	if c.KafkaProducerConf.Brokers != "" && c.KafkaProducerConf.Topics.Escrow == "" {
		return fmt.Errorf("kafka_producer.topics.escrow is required when brokers are set")
	}
	return nil
}

// Program 解析 escrow 程序地址
func (c *ProgramConfig) Program() (types.Pubkey, error) {
	if c.ProgramID == "" {
		return types.Pubkey{}, fmt.Errorf("program.program_id is required")
	}
	pk, err := types.TryPubkeyFromBase58(c.ProgramID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("program.program_id: %w", err)
	}
	return pk, nil
}

// TokenProgram 解析 token 程序地址，未配置时返回零值（由调用方回落到标准 Token Program）
func (c *ProgramConfig) TokenProgram() (types.Pubkey, error) {
	if c.TokenProgramID == "" {
		return types.Pubkey{}, nil
	}
	pk, err := types.TryPubkeyFromBase58(c.TokenProgramID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("program.token_program_id: %w", err)
	}
	return pk, nil
}

// EscrowPubkeys 解析需要跟踪的 escrow 账户列表
func (c *WatcherConfig) EscrowPubkeys() ([]types.Pubkey, error) {
	keys, err := types.PubkeysFromBase58(c.Escrows)
	if err != nil {
		return nil, fmt.Errorf("watcher.escrows: %w", err)
	}
	return keys, nil
}

// Load 读取 yaml 配置文件
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// MustLoad 读取配置，失败直接退出进程
func MustLoad(path string, v any) {
	if err := Load(path, v); err != nil {
		logger.Errorf("[config] %v", err)
		logger.Sync()
		os.Exit(1)
	}
}
