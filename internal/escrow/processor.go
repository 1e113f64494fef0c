package escrow

import (
	"escrow-sol/internal/consts"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// Invoker 跨程序调用（CPI）能力，由宿主运行时提供。
// 被调用程序对 accounts 的修改对调用方立即可见；任何失败都会使整个执行单元回滚。
type Invoker interface {
	// Invoke 以调用方已有的签名权限执行 ix
	Invoke(ix sdktypes.Instruction, accounts []*AccountInfo) error
	// InvokeSigned 额外以 signerSeeds 派生出的 PDA 身份签名
	InvokeSigned(ix sdktypes.Instruction, accounts []*AccountInfo, signerSeeds [][][]byte) error
}

// RentChecker 免租判定，由宿主按当前租金参数实现
type RentChecker interface {
	IsExempt(lamports uint64, dataLen int) bool
}

// Processor 是 escrow 程序的状态机：校验账户、读写 Record、通过 Invoker 调用 Token Program。
// 自身不持有状态，也不做并发控制，一次调用在宿主提供的执行单元内同步完成。
type Processor struct {
	TokenProgramID types.Pubkey
	Rent           RentChecker
	Invoker        Invoker
}

func NewProcessor(rent RentChecker, invoker Invoker) *Processor {
	return &Processor{
		TokenProgramID: consts.TokenProgram,
		Rent:           rent,
		Invoker:        invoker,
	}
}

// Process 程序入口：解码指令并分派
func (p *Processor) Process(programID types.Pubkey, accounts []*AccountInfo, data []byte) error {
	instruction, err := UnpackInstruction(data)
	if err != nil {
		return err
	}

	switch ix := instruction.(type) {
	case InitEscrow:
		logger.Debugf("[escrow] InitEscrow amount=%d", ix.Amount)
		return p.processInitEscrow(programID, accounts, ix.Amount)
	case Exchange:
		logger.Debugf("[escrow] Exchange amount=%d", ix.Amount)
		return p.processExchange(programID, accounts, ix.Amount)
	default:
		return ErrInvalidInstruction
	}
}

func (p *Processor) processInitEscrow(programID types.Pubkey, accounts []*AccountInfo, amount uint64) error {
	iter := newAccountIter(accounts)

	// 1. 发起人必须签名
	initializer, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireSigner(initializer); err != nil {
		return err
	}

	// 2. 临时 token 账户，控制权即将变更，必须可写
	holding, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireWritable(holding); err != nil {
		return err
	}

	// 3. 接收账户本次不会被写入，必须显式校验归 Token Program 所有，
	// 否则错误会推迟到 taker 的交易里才暴露
	receive, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireOwner(receive, p.TokenProgramID); err != nil {
		return err
	}

	// 4. escrow 记录账户：可写、归本程序所有、免租
	escrowAccount, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireWritable(escrowAccount); err != nil {
		return err
	}
	if err := requireOwner(escrowAccount, programID); err != nil {
		return err
	}
	if err := requireRentExempt(p.Rent, escrowAccount); err != nil {
		return err
	}

	// 5. Token Program
	tokenProgram, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireKey(tokenProgram, p.TokenProgramID, ErrIncorrectProgramId); err != nil {
		return err
	}

	record, err := UnpackUnchecked(escrowAccount.Data)
	if err != nil {
		return err
	}
	if record.IsInitialized() {
		return ErrAccountAlreadyInitialized
	}

	pda, _, err := FindEscrowAuthority(programID)
	if err != nil {
		return ErrInvalidSeeds
	}

	// 先写记录再转移控制权：即使 SetAuthority 失败，记录本身也是一致的已初始化状态
	record = Record{
		Initialized:              true,
		InitializerPubkey:        initializer.Key,
		HoldingAccountPubkey:     holding.Key,
		InitializerReceivePubkey: receive.Key,
		ExpectedAmount:           amount,
	}
	if err := record.Pack(escrowAccount.Data); err != nil {
		return err
	}

	newAuth := pda.ToCommon()
	setAuthorityIx := sdktoken.SetAuthority(sdktoken.SetAuthorityParam{
		Account:  holding.Key.ToCommon(),
		NewAuth:  &newAuth,
		AuthType: sdktoken.AuthorityTypeAccountOwner,
		Auth:     initializer.Key.ToCommon(),
		Signers:  []common.PublicKey{},
	})
	setAuthorityIx.ProgramID = p.TokenProgramID.ToCommon()

	logger.Debugf("[escrow] set authority of %s to pda %s", holding.Key, pda)
	return p.Invoker.Invoke(setAuthorityIx, []*AccountInfo{holding, initializer, tokenProgram})
}

func (p *Processor) processExchange(programID types.Pubkey, accounts []*AccountInfo, amountExpectedByTaker uint64) error {
	iter := newAccountIter(accounts)

	taker, err := iter.next()
	if err != nil {
		return err
	}
	if err := requireSigner(taker); err != nil {
		return err
	}

	takerSend, err := iter.next()
	if err != nil {
		return err
	}
	takerReceive, err := iter.next()
	if err != nil {
		return err
	}
	holding, err := iter.next()
	if err != nil {
		return err
	}
	initializer, err := iter.next()
	if err != nil {
		return err
	}
	initializerReceive, err := iter.next()
	if err != nil {
		return err
	}
	escrowAccount, err := iter.next()
	if err != nil {
		return err
	}
	tokenProgram, err := iter.next()
	if err != nil {
		return err
	}
	pdaAccount, err := iter.next()
	if err != nil {
		return err
	}

	if err := requireWritable(takerSend, takerReceive, holding, initializer, initializerReceive, escrowAccount); err != nil {
		return err
	}

	// 托管余额必须与 taker 的期望严格相等
	holdingAmount, err := tokenAccountAmount(holding, p.TokenProgramID)
	if err != nil {
		return err
	}
	if holdingAmount != amountExpectedByTaker {
		return ErrExpectedAmountMismatch
	}

	if err := requireOwner(escrowAccount, programID); err != nil {
		return err
	}
	record, err := Unpack(escrowAccount.Data)
	if err != nil {
		return err
	}
	if err := requireRecordAccounts(&record, holding, initializer, initializerReceive); err != nil {
		return err
	}

	if err := requireKey(tokenProgram, p.TokenProgramID, ErrIncorrectProgramId); err != nil {
		return err
	}
	pda, bump, err := FindEscrowAuthority(programID)
	if err != nil {
		return ErrInvalidSeeds
	}
	if err := requireKey(pdaAccount, pda, ErrInvalidSeeds); err != nil {
		return err
	}
	signerSeeds := [][][]byte{EscrowAuthoritySeeds(bump)}

	// 1. taker 把记录中约定的 token Y 数量转给发起人（金额取自记录，不取 taker 输入）
	transferToInitializerIx := sdktoken.Transfer(sdktoken.TransferParam{
		From:    takerSend.Key.ToCommon(),
		To:      initializerReceive.Key.ToCommon(),
		Auth:    taker.Key.ToCommon(),
		Signers: []common.PublicKey{},
		Amount:  record.ExpectedAmount,
	})
	transferToInitializerIx.ProgramID = p.TokenProgramID.ToCommon()

	logger.Debugf("[escrow] transfer %d from %s to %s", record.ExpectedAmount, takerSend.Key, initializerReceive.Key)
	if err := p.Invoker.Invoke(
		transferToInitializerIx,
		[]*AccountInfo{takerSend, initializerReceive, taker, tokenProgram},
	); err != nil {
		return err
	}

	// 2. PDA 把托管的 token X 全部转给 taker
	transferToTakerIx := sdktoken.Transfer(sdktoken.TransferParam{
		From:    holding.Key.ToCommon(),
		To:      takerReceive.Key.ToCommon(),
		Auth:    pda.ToCommon(),
		Signers: []common.PublicKey{},
		Amount:  holdingAmount,
	})
	transferToTakerIx.ProgramID = p.TokenProgramID.ToCommon()

	logger.Debugf("[escrow] transfer %d from %s to %s", holdingAmount, holding.Key, takerReceive.Key)
	if err := p.Invoker.InvokeSigned(
		transferToTakerIx,
		[]*AccountInfo{holding, takerReceive, pdaAccount, tokenProgram},
		signerSeeds,
	); err != nil {
		return err
	}

	// 3. 关闭托管账户，租金退回发起人
	closeHoldingIx := sdktoken.CloseAccount(sdktoken.CloseAccountParam{
		Account: holding.Key.ToCommon(),
		To:      initializer.Key.ToCommon(),
		Auth:    pda.ToCommon(),
		Signers: []common.PublicKey{},
	})
	closeHoldingIx.ProgramID = p.TokenProgramID.ToCommon()

	logger.Debugf("[escrow] close holding account %s", holding.Key)
	if err := p.Invoker.InvokeSigned(
		closeHoldingIx,
		[]*AccountInfo{holding, initializer, pdaAccount, tokenProgram},
		signerSeeds,
	); err != nil {
		return err
	}

	// 4. 关闭记录账户：lamports 归还发起人，数据清零，之后无法再次 Exchange
	logger.Debugf("[escrow] close record account %s", escrowAccount.Key)
	reclaimed, err := checkedAdd(initializer.Lamports, escrowAccount.Lamports)
	if err != nil {
		return err
	}
	initializer.Lamports = reclaimed
	escrowAccount.Lamports = 0
	clear(escrowAccount.Data)
	return nil
}
