package mq

import (
	"context"
	"fmt"
	"os"
	"time"

	"escrow-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize  = 32 * 1024
	defaultLingerMs   = 5
	defaultPartitions = 1
	adminTimeout      = 10 * time.Second
)

// TopicOption 需要确保存在的 topic
type TopicOption struct {
	Topic      string // topic 名称
	Partitions int    // 分区数，<=0 时为 1
}

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔（如 "localhost:9092,localhost:9093"）
	BatchSize int    // 批处理大小（单位字节），如 32768 = 32KB
	LingerMs  int    // 批处理最大延迟（毫秒），建议 5~20ms 之间

	Topics []TopicOption
}

// NewKafkaProducer 创建 Kafka 生产者，缺失的 topic 会先行创建
func NewKafkaProducer(opt KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(opt); err != nil {
		return nil, err
	}

	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := opt.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": opt.Brokers,
		"client.id":         fmt.Sprintf("escrow-watcher-%s", hostname),

		// 可靠性保障：状态变更事件不能丢
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		// 性能
		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",

		"message.max.bytes": 1024 * 1024, // 1MB
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// ensureTopics 检查并创建缺失的 topic
func ensureTopics(opt KafkaProducerOption) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": opt.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	meta, err := adminClient.GetMetadata(nil, true, int(adminTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	replicationFactor := replicationFor(len(meta.Brokers))
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	existing := make(map[string]bool, len(meta.Topics))
	for name := range meta.Topics {
		existing[name] = true
	}
	specs := missingTopics(opt.Topics, existing, replicationFactor)
	if len(specs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	results, err := adminClient.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
		logger.Infof("[mq] topic %s ready", result.Topic)
	}
	return nil
}

// replicationFor 单 broker 时只能 1 副本，其余使用 2 副本
func replicationFor(brokerCount int) int {
	if brokerCount > 1 {
		return 2
	}
	return 1
}

func missingTopics(topics []TopicOption, existing map[string]bool, replicationFactor int) []kafka.TopicSpecification {
	var specs []kafka.TopicSpecification
	for _, t := range topics {
		if t.Topic == "" || existing[t.Topic] {
			continue
		}
		partitions := t.Partitions
		if partitions <= 0 {
			partitions = defaultPartitions
		}
		specs = append(specs, kafka.TopicSpecification{
			Topic:             t.Topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
		existing[t.Topic] = true
	}
	return specs
}
