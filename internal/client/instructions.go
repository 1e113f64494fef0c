package client

import (
	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// InitEscrowParam InitEscrow 指令参数，账户含义见 escrow.InitEscrow
type InitEscrowParam struct {
	ProgramID      types.Pubkey
	Initializer    types.Pubkey
	HoldingAccount types.Pubkey // 发起人预先创建并存入 token X 的临时账户
	ReceiveAccount types.Pubkey // 发起人接收 token Y 的账户
	EscrowAccount  types.Pubkey // 记录账户，需预先以 RecordLen 创建并归属程序
	TokenProgramID types.Pubkey // 为空时使用标准 Token Program
	Amount         uint64       // 期望收到的 token Y 数量
}

func NewInitEscrowInstruction(p InitEscrowParam) sdktypes.Instruction {
	return sdktypes.Instruction{
		ProgramID: p.ProgramID.ToCommon(),
		Accounts: []sdktypes.AccountMeta{
			{PubKey: p.Initializer.ToCommon(), IsSigner: true, IsWritable: false},
			{PubKey: p.HoldingAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.ReceiveAccount.ToCommon(), IsSigner: false, IsWritable: false},
			{PubKey: p.EscrowAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: tokenProgramOrDefault(p.TokenProgramID).ToCommon(), IsSigner: false, IsWritable: false},
		},
		Data: escrow.InitEscrow{Amount: p.Amount}.Pack(),
	}
}

// ExchangeParam Exchange 指令参数，账户含义见 escrow.Exchange
type ExchangeParam struct {
	ProgramID                 types.Pubkey
	Taker                     types.Pubkey
	TakerSendAccount          types.Pubkey // taker 支付 token Y 的账户
	TakerReceiveAccount       types.Pubkey // taker 接收 token X 的账户
	HoldingAccount            types.Pubkey
	Initializer               types.Pubkey
	InitializerReceiveAccount types.Pubkey
	EscrowAccount             types.Pubkey
	TokenProgramID            types.Pubkey
	Amount                    uint64 // taker 期望收到的 token X 数量
}

// NewExchangeInstruction 构造 Exchange 指令，PDA 由程序 ID 派生
func NewExchangeInstruction(p ExchangeParam) (sdktypes.Instruction, error) {
	pda, _, err := escrow.FindEscrowAuthority(p.ProgramID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}

	return sdktypes.Instruction{
		ProgramID: p.ProgramID.ToCommon(),
		Accounts: []sdktypes.AccountMeta{
			{PubKey: p.Taker.ToCommon(), IsSigner: true, IsWritable: false},
			{PubKey: p.TakerSendAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.TakerReceiveAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.HoldingAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.Initializer.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.InitializerReceiveAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: p.EscrowAccount.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: tokenProgramOrDefault(p.TokenProgramID).ToCommon(), IsSigner: false, IsWritable: false},
			{PubKey: pda.ToCommon(), IsSigner: false, IsWritable: false},
		},
		Data: escrow.Exchange{Amount: p.Amount}.Pack(),
	}, nil
}

// ExchangeParamFromRecord 以链上记录补全 Exchange 中由发起人承诺的三个账户
func ExchangeParamFromRecord(programID, escrowAccount types.Pubkey, r *escrow.Record) ExchangeParam {
	return ExchangeParam{
		ProgramID:                 programID,
		HoldingAccount:            r.HoldingAccountPubkey,
		Initializer:               r.InitializerPubkey,
		InitializerReceiveAccount: r.InitializerReceivePubkey,
		EscrowAccount:             escrowAccount,
	}
}

func tokenProgramOrDefault(id types.Pubkey) types.Pubkey {
	if id.IsZero() {
		return consts.TokenProgram
	}
	return id
}
