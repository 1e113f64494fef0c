package dispatcher

import (
	"crypto/sha256"
	"testing"

	"escrow-sol/internal/logic/core"
	"escrow-sol/internal/types"
	"escrow-sol/internal/utils"
	"escrow-sol/pb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEscrowKafkaJobs(t *testing.T) {
	addr := types.Pubkey(sha256.Sum256([]byte("escrow")))
	initialized := &core.EscrowEvent{
		Version:            core.EventVersion,
		Escrow:             addr,
		Initializer:        types.Pubkey(sha256.Sum256([]byte("alice"))),
		HoldingAccount:     types.Pubkey(sha256.Sum256([]byte("holding"))),
		InitializerReceive: types.Pubkey(sha256.Sum256([]byte("receive"))),
		ExpectedAmount:     1000,
		HoldingAmount:      500,
		ObservedAt:         1_700_000_000_000,
	}
	events := []*core.Event{
		{
			EventType: core.EventEscrowInitialized,
			Key:       addr[:],
			Payload:   initialized,
		},
		{
			EventType: core.EventEscrowCompleted,
			Key:       addr[:],
			Payload:   &core.EscrowEvent{Version: core.EventVersion, Escrow: addr, ExpectedAmount: 10},
		},
	}

	jobs, err := BuildEscrowKafkaJobs("escrow", 8, events)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// 同一 escrow 的事件落在同一分区
	assert.Equal(t, jobs[0].Partition, jobs[1].Partition)
	assert.Equal(t, int32(utils.PartitionHashBytes(addr[:], 8)), jobs[0].Partition)
	assert.Equal(t, "escrow", jobs[0].Topic)
	assert.Equal(t, addr[:], jobs[0].Key)

	// 消息体解码后与原事件逐字段一致
	var msg pb.EscrowEvent
	eventType, err := utils.DecodeEvent(jobs[0].Value, &msg)
	require.NoError(t, err)
	assert.Equal(t, uint32(core.EventEscrowInitialized), eventType)
	got, err := core.EscrowEventFromProto(&msg)
	require.NoError(t, err)
	assert.Equal(t, initialized, got)

	eventType, err = utils.DecodeEvent(jobs[1].Value, &msg)
	require.NoError(t, err)
	assert.Equal(t, uint32(core.EventEscrowCompleted), eventType)
	assert.Equal(t, addr[:], msg.GetEscrow())
	assert.Equal(t, uint64(10), msg.GetExpectedAmount())
}

func TestBuildEscrowKafkaJobs_Empty(t *testing.T) {
	jobs, err := BuildEscrowKafkaJobs("escrow", 0, nil)
	assert.NoError(t, err)
	assert.Nil(t, jobs)
}
