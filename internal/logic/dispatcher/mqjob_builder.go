package dispatcher

import (
	"fmt"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/mq"
	"escrow-sol/internal/utils"
)

// BuildEscrowKafkaJobs 把事件逐条编码为 KafkaJob。
// 分区由 escrow 地址决定，同一笔交易的 Initialized / Completed 落在同一分区，消费端可按序处理。
// 该模块构建后的 []*mq.KafkaJob 可直接交给 mq.KafkaPublisher 发送。
func BuildEscrowKafkaJobs(topic string, partitions int, events []*core.Event) ([]*mq.KafkaJob, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if partitions <= 0 {
		partitions = 1
	}

	jobs := make([]*mq.KafkaJob, 0, len(events))
	for _, evt := range events {
		value, err := utils.EncodeEvent(uint32(evt.EventType), evt.Payload.ToProto())
		if err != nil {
			return nil, fmt.Errorf("encode %s event: %w", evt.EventType, err)
		}
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     topic,
			Partition: int32(utils.PartitionHashBytes(evt.Key, uint32(partitions))),
			Key:       evt.Key,
			Value:     value,
		})
	}
	return jobs, nil
}
