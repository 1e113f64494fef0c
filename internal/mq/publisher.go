package mq

import (
	"context"
	"fmt"
	"time"

	"escrow-sol/pkg/logger"
)

const defaultSendTimeout = 3 * time.Second

// KafkaPublisher 以“全部 ack 才算成功”的语义发送一批消息
type KafkaPublisher struct {
	producer Producer
	timeout  time.Duration
}

func NewKafkaPublisher(producer Producer, perMessageTimeout time.Duration) *KafkaPublisher {
	if perMessageTimeout <= 0 {
		perMessageTimeout = defaultSendTimeout
	}
	return &KafkaPublisher{producer: producer, timeout: perMessageTimeout}
}

// Publish 发送 jobs，任一消息失败即返回错误（已成功的消息不会撤回，消费端需按 escrow 地址幂等处理）
func (p *KafkaPublisher) Publish(ctx context.Context, jobs []*KafkaJob) error {
	if len(jobs) == 0 {
		return nil
	}
	_, failed := SendKafkaJobs(ctx, p.producer, jobs, p.timeout)
	if len(failed) == 0 {
		return nil
	}
	for _, f := range failed {
		logger.Warnf("[mq] send to %s[%d] failed: %v", f.Job.Topic, f.Job.Partition, f.Err)
	}
	return fmt.Errorf("%d of %d kafka messages failed, first: %w", len(failed), len(jobs), failed[0].Err)
}
