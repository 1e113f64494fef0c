package core

import (
	"fmt"

	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"
	"escrow-sol/pb"
)

// EventType 事件类型，编码在 Kafka 消息的前 4 字节
type EventType uint32

const (
	EventUnknown           EventType = 0
	EventEscrowInitialized EventType = 1 // 记录账户已初始化，等待 taker
	EventEscrowCompleted   EventType = 2 // 记录账户已关闭，交易完成
)

func (t EventType) String() string {
	switch t {
	case EventEscrowInitialized:
		return "escrow_initialized"
	case EventEscrowCompleted:
		return "escrow_completed"
	default:
		return "unknown"
	}
}

// EventVersion 事件载荷版本，载荷字段变更时递增
const EventVersion uint8 = 1

// EscrowEvent 是一次观测得到的 escrow 快照，发往 Kafka 时转换为 pb.EscrowEvent
type EscrowEvent struct {
	Version            uint8
	Escrow             types.Pubkey // escrow 记录账户
	Initializer        types.Pubkey
	HoldingAccount     types.Pubkey
	InitializerReceive types.Pubkey
	ExpectedAmount     uint64 // 发起人要求的 token Y 数量
	HoldingAmount      uint64 // 观测时托管账户中的 token X 数量
	ObservedAt         int64  // 观测时间（Unix 毫秒）
}

// NewEscrowEvent 由链上记录构造事件载荷
func NewEscrowEvent(addr types.Pubkey, r *escrow.Record, holdingAmount uint64, observedAt int64) *EscrowEvent {
	return &EscrowEvent{
		Version:            EventVersion,
		Escrow:             addr,
		Initializer:        r.InitializerPubkey,
		HoldingAccount:     r.HoldingAccountPubkey,
		InitializerReceive: r.InitializerReceivePubkey,
		ExpectedAmount:     r.ExpectedAmount,
		HoldingAmount:      holdingAmount,
		ObservedAt:         observedAt,
	}
}

// ToProto 转换为 Kafka 消息体
func (e *EscrowEvent) ToProto() *pb.EscrowEvent {
	return &pb.EscrowEvent{
		Version:            uint32(e.Version),
		Escrow:             e.Escrow[:],
		Initializer:        e.Initializer[:],
		HoldingAccount:     e.HoldingAccount[:],
		InitializerReceive: e.InitializerReceive[:],
		ExpectedAmount:     e.ExpectedAmount,
		HoldingAmount:      e.HoldingAmount,
		ObservedAt:         e.ObservedAt,
	}
}

// EscrowEventFromProto 解析 Kafka 消息体，地址字段必须为 32 字节
func EscrowEventFromProto(msg *pb.EscrowEvent) (*EscrowEvent, error) {
	evt := &EscrowEvent{
		Version:        uint8(msg.GetVersion()),
		ExpectedAmount: msg.GetExpectedAmount(),
		HoldingAmount:  msg.GetHoldingAmount(),
		ObservedAt:     msg.GetObservedAt(),
	}
	fields := []struct {
		name string
		src  []byte
		dst  *types.Pubkey
	}{
		{"escrow", msg.GetEscrow(), &evt.Escrow},
		{"initializer", msg.GetInitializer(), &evt.Initializer},
		{"holding_account", msg.GetHoldingAccount(), &evt.HoldingAccount},
		{"initializer_receive", msg.GetInitializerReceive(), &evt.InitializerReceive},
	}
	for _, f := range fields {
		pk, err := types.PubkeyFromBytes(f.src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = pk
	}
	return evt, nil
}

type Event struct {
	EventType EventType
	Key       []byte // Kafka 分区 key，使用 escrow 记录账户地址，保证同一交易的事件有序
	Payload   *EscrowEvent
}
