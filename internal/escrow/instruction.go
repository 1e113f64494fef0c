package escrow

import (
	"encoding/binary"
	"fmt"
)

// InstructionTag 指令数据首字节，决定指令类型
type InstructionTag uint8

const (
	TagInitEscrow InstructionTag = 0
	TagExchange   InstructionTag = 1
)

const (
	amountLen      = 8
	instructionLen = 1 + amountLen
)

// Instruction 是解码后的 escrow 指令，取值为 InitEscrow 或 Exchange。
type Instruction interface {
	Tag() InstructionTag
	// Pack 编码为 [tag][amount u64 LE]
	Pack() []byte
}

// InitEscrow 创建交易并把临时 token 账户的控制权转给 PDA。
//
// 账户布局：
//
// #0 - [signer]   发起人（initializer）
// #1 - [writable] 临时 token 账户（托管 token X，控制权将转给 PDA）
// #2 - []         发起人接收 token Y 的账户，必须归 Token Program 所有
// #3 - [writable] escrow 记录账户（必须归本程序所有且免租）
// #4 - []         Token Program
type InitEscrow struct {
	// Amount 发起人期望收到的 token Y 数量
	Amount uint64
}

func (InitEscrow) Tag() InstructionTag { return TagInitEscrow }

func (ix InitEscrow) Pack() []byte { return packAmount(TagInitEscrow, ix.Amount) }

// Exchange 由 taker 完成交易。
//
// 账户布局：
//
// #0 - [signer]   taker
// #1 - [writable] taker 发出 token Y 的账户
// #2 - [writable] taker 接收 token X 的账户
// #3 - [writable] 临时 token 账户（PDA 控制，托管 token X）
// #4 - [writable] 发起人主账户（回收租金）
// #5 - [writable] 发起人接收 token Y 的账户
// #6 - [writable] escrow 记录账户
// #7 - []         Token Program
// #8 - []         PDA
type Exchange struct {
	// Amount taker 期望从托管账户收到的 token X 数量，只用于与托管余额做相等校验
	Amount uint64
}

func (Exchange) Tag() InstructionTag { return TagExchange }

func (ix Exchange) Pack() []byte { return packAmount(TagExchange, ix.Amount) }

// UnpackInstruction 解码指令数据：首字节为 tag，随后 8 字节为小端 u64 金额，多余字节忽略。
func UnpackInstruction(input []byte) (Instruction, error) {
	if len(input) == 0 {
		return nil, ErrInvalidInstruction
	}

	tag, rest := InstructionTag(input[0]), input[1:]
	switch tag {
	case TagInitEscrow:
		amount, err := unpackAmount(rest)
		if err != nil {
			return nil, err
		}
		return InitEscrow{Amount: amount}, nil

	case TagExchange:
		amount, err := unpackAmount(rest)
		if err != nil {
			return nil, err
		}
		return Exchange{Amount: amount}, nil

	default:
		return nil, ErrInvalidInstruction
	}
}

func unpackAmount(input []byte) (uint64, error) {
	if len(input) < amountLen {
		return 0, ErrInvalidInstruction
	}
	return binary.LittleEndian.Uint64(input[:amountLen]), nil
}

func packAmount(tag InstructionTag, amount uint64) []byte {
	buf := make([]byte, instructionLen)
	buf[0] = byte(tag)
	binary.LittleEndian.PutUint64(buf[1:], amount)
	return buf
}

func (t InstructionTag) String() string {
	switch t {
	case TagInitEscrow:
		return "InitEscrow"
	case TagExchange:
		return "Exchange"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}
