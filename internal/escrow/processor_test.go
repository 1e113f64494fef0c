package escrow_test

import (
	"crypto/sha256"
	"testing"

	"escrow-sol/internal/client"
	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/runtime"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	depositX  = 1000 // 发起人托管的 token X
	expectedY = 1000 // 发起人期望的 token Y
	takerY    = 5000
	solBudget = 10_000_000_000
)

func key(label string) types.Pubkey {
	return types.Pubkey(sha256.Sum256([]byte(label)))
}

// escrowEnv 一套完整的 escrow 测试环境：运行时 + Token Program + 双方账户
type escrowEnv struct {
	t  *testing.T
	rt *runtime.Runtime

	programID types.Pubkey
	mintX     types.Pubkey
	mintY     types.Pubkey

	initializer        types.Pubkey
	holding            types.Pubkey
	initializerReceive types.Pubkey
	escrowAccount      types.Pubkey

	taker        types.Pubkey
	takerSend    types.Pubkey
	takerReceive types.Pubkey
}

func newEscrowEnv(t *testing.T) *escrowEnv {
	ledger := runtime.NewLedger()
	rt := runtime.New(ledger, runtime.DefaultRent())

	env := &escrowEnv{
		t:                  t,
		rt:                 rt,
		programID:          key("escrow-program"),
		mintX:              key("mint-x"),
		mintY:              key("mint-y"),
		initializer:        key("alice"),
		holding:            key("alice-holding-x"),
		initializerReceive: key("alice-receive-y"),
		escrowAccount:      key("escrow-record"),
		taker:              key("bob"),
		takerSend:          key("bob-send-y"),
		takerReceive:       key("bob-receive-x"),
	}

	rt.RegisterProgram(consts.TokenProgram, runtime.NewTokenProgram())
	rt.RegisterProgram(env.programID, escrow.NewProcessor(rt.Rent(), rt))

	tokenRent := rt.Rent().MinimumBalance(consts.TokenAccountSize)
	ledger.Airdrop(env.initializer, solBudget)
	ledger.Airdrop(env.taker, solBudget)
	ledger.CreateTokenAccount(env.holding, env.mintX, env.initializer, depositX, tokenRent)
	ledger.CreateTokenAccount(env.initializerReceive, env.mintY, env.initializer, 0, tokenRent)
	ledger.CreateTokenAccount(env.takerSend, env.mintY, env.taker, takerY, tokenRent)
	ledger.CreateTokenAccount(env.takerReceive, env.mintX, env.taker, 0, tokenRent)
	ledger.CreateAccount(env.escrowAccount, env.programID, rt.Rent().MinimumBalance(escrow.RecordLen), escrow.RecordLen)
	return env
}

func (e *escrowEnv) ledger() *runtime.Ledger {
	return e.rt.Ledger()
}

func (e *escrowEnv) initParam(amount uint64) client.InitEscrowParam {
	return client.InitEscrowParam{
		ProgramID:      e.programID,
		Initializer:    e.initializer,
		HoldingAccount: e.holding,
		ReceiveAccount: e.initializerReceive,
		EscrowAccount:  e.escrowAccount,
		Amount:         amount,
	}
}

func (e *escrowEnv) initEscrow(amount uint64) error {
	return e.rt.ProcessInstruction(client.NewInitEscrowInstruction(e.initParam(amount)), e.initializer)
}

func (e *escrowEnv) exchangeParam(amount uint64) client.ExchangeParam {
	return client.ExchangeParam{
		ProgramID:                 e.programID,
		Taker:                     e.taker,
		TakerSendAccount:          e.takerSend,
		TakerReceiveAccount:       e.takerReceive,
		HoldingAccount:            e.holding,
		Initializer:               e.initializer,
		InitializerReceiveAccount: e.initializerReceive,
		EscrowAccount:             e.escrowAccount,
		Amount:                    amount,
	}
}

func (e *escrowEnv) exchangeIx(p client.ExchangeParam) sdktypes.Instruction {
	ix, err := client.NewExchangeInstruction(p)
	require.NoError(e.t, err)
	return ix
}

func (e *escrowEnv) exchange(amount uint64) error {
	return e.rt.ProcessInstruction(e.exchangeIx(e.exchangeParam(amount)), e.taker)
}

func (e *escrowEnv) record() escrow.Record {
	acc, ok := e.ledger().Get(e.escrowAccount)
	require.True(e.t, ok, "escrow account missing")
	rec, err := escrow.UnpackUnchecked(acc.Data)
	require.NoError(e.t, err)
	return rec
}

func (e *escrowEnv) tokenAmount(k types.Pubkey) uint64 {
	_, amount, err := e.ledger().TokenAccount(k)
	require.NoError(e.t, err)
	return amount
}

func (e *escrowEnv) tokenOwner(k types.Pubkey) types.Pubkey {
	owner, _, err := e.ledger().TokenAccount(k)
	require.NoError(e.t, err)
	return owner
}

func (e *escrowEnv) pda() types.Pubkey {
	pda, _, err := escrow.FindEscrowAuthority(e.programID)
	require.NoError(e.t, err)
	return pda
}

func TestInitEscrow_Success(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	rec := env.record()
	assert.True(t, rec.IsInitialized())
	assert.Equal(t, env.initializer, rec.InitializerPubkey)
	assert.Equal(t, env.holding, rec.HoldingAccountPubkey)
	assert.Equal(t, env.initializerReceive, rec.InitializerReceivePubkey)
	assert.Equal(t, uint64(expectedY), rec.ExpectedAmount)

	// 托管账户的控制权已转给 PDA，余额不变
	assert.Equal(t, env.pda(), env.tokenOwner(env.holding))
	assert.Equal(t, uint64(depositX), env.tokenAmount(env.holding))
}

func TestInitEscrow_NotRentExempt(t *testing.T) {
	env := newEscrowEnv(t)
	minBalance := env.rt.Rent().MinimumBalance(escrow.RecordLen)
	env.ledger().CreateAccount(env.escrowAccount, env.programID, minBalance-1, escrow.RecordLen)

	err := env.initEscrow(expectedY)
	assert.ErrorIs(t, err, escrow.ErrNotRentExempt)

	// 任何账户都不应被修改
	assert.False(t, env.record().IsInitialized())
	assert.Equal(t, env.initializer, env.tokenOwner(env.holding))
}

func TestInitEscrow_AlreadyInitialized(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	err := env.initEscrow(1)
	assert.ErrorIs(t, err, escrow.ErrAccountAlreadyInitialized)
	assert.Equal(t, uint64(expectedY), env.record().ExpectedAmount)
}

func TestInitEscrow_MissingSignature(t *testing.T) {
	env := newEscrowEnv(t)
	ix := client.NewInitEscrowInstruction(env.initParam(expectedY))
	ix.Accounts[0].IsSigner = false

	err := env.rt.ProcessInstruction(ix)
	assert.ErrorIs(t, err, escrow.ErrMissingRequiredSignature)
	assert.False(t, env.record().IsInitialized())
}

func TestInitEscrow_AccountChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(env *escrowEnv, p *client.InitEscrowParam)
		wantErr error
	}{
		{
			name: "receive account not owned by token program",
			mutate: func(env *escrowEnv, p *client.InitEscrowParam) {
				p.ReceiveAccount = env.taker
			},
			wantErr: escrow.ErrIncorrectProgramId,
		},
		{
			name: "escrow account not owned by program",
			mutate: func(env *escrowEnv, p *client.InitEscrowParam) {
				other := key("foreign-record")
				env.ledger().CreateAccount(other, consts.SystemProgram, env.rt.Rent().MinimumBalance(escrow.RecordLen), escrow.RecordLen)
				p.EscrowAccount = other
			},
			wantErr: escrow.ErrIncorrectProgramId,
		},
		{
			name: "escrow account wrong size",
			mutate: func(env *escrowEnv, p *client.InitEscrowParam) {
				other := key("short-record")
				env.ledger().CreateAccount(other, env.programID, env.rt.Rent().MinimumBalance(64), 64)
				p.EscrowAccount = other
			},
			wantErr: escrow.ErrInvalidAccountData,
		},
		{
			name: "wrong token program",
			mutate: func(env *escrowEnv, p *client.InitEscrowParam) {
				p.TokenProgramID = env.programID
			},
			wantErr: escrow.ErrIncorrectProgramId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEscrowEnv(t)
			p := env.initParam(expectedY)
			tt.mutate(env, &p)
			err := env.rt.ProcessInstruction(client.NewInitEscrowInstruction(p), env.initializer)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, env.initializer, env.tokenOwner(env.holding))
		})
	}
}

func TestInitEscrow_NotEnoughAccounts(t *testing.T) {
	env := newEscrowEnv(t)
	ix := client.NewInitEscrowInstruction(env.initParam(expectedY))
	ix.Accounts = ix.Accounts[:3]

	err := env.rt.ProcessInstruction(ix, env.initializer)
	assert.ErrorIs(t, err, escrow.ErrNotEnoughAccountKeys)
}

func TestInitEscrow_SetAuthorityFailureRollsBack(t *testing.T) {
	env := newEscrowEnv(t)
	// 临时账户实际归他人所有，Token Program 拒绝变更控制权
	env.ledger().CreateTokenAccount(env.holding, env.mintX, key("mallory"), depositX,
		env.rt.Rent().MinimumBalance(consts.TokenAccountSize))

	err := env.initEscrow(expectedY)
	assert.ErrorIs(t, err, escrow.Custom(runtime.TokenErrOwnerMismatch))

	// 记录已在 CPI 前写入，但整个执行单元失败后必须回滚
	assert.False(t, env.record().IsInitialized())
}

func TestInitEscrow_InvalidInstructionData(t *testing.T) {
	env := newEscrowEnv(t)
	ix := client.NewInitEscrowInstruction(env.initParam(expectedY))
	ix.Data = []byte{7}

	err := env.rt.ProcessInstruction(ix, env.initializer)
	assert.ErrorIs(t, err, escrow.ErrInvalidInstruction)
}

func TestExchange_EndToEnd(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	initializerBefore := env.ledger().Lamports(env.initializer)
	holdingRent := env.ledger().Lamports(env.holding)
	recordRent := env.ledger().Lamports(env.escrowAccount)

	require.NoError(t, env.exchange(depositX))

	assert.Equal(t, uint64(expectedY), env.tokenAmount(env.initializerReceive))
	assert.Equal(t, uint64(takerY-expectedY), env.tokenAmount(env.takerSend))
	assert.Equal(t, uint64(depositX), env.tokenAmount(env.takerReceive))

	// 托管账户与记录账户均已关闭，租金回到发起人
	assert.False(t, env.ledger().Exists(env.holding))
	assert.False(t, env.ledger().Exists(env.escrowAccount))
	assert.Equal(t, initializerBefore+holdingRent+recordRent, env.ledger().Lamports(env.initializer))

	// 同一笔交易不能被再次完成
	assert.Error(t, env.exchange(depositX))
}

func TestExchange_ExpectedAmountMismatch(t *testing.T) {
	for _, amount := range []uint64{depositX - 1, depositX + 1, 0} {
		env := newEscrowEnv(t)
		require.NoError(t, env.initEscrow(expectedY))

		err := env.exchange(amount)
		assert.ErrorIs(t, err, escrow.ErrExpectedAmountMismatch, "amount %d", amount)
		assert.Equal(t, uint64(0), env.tokenAmount(env.initializerReceive))
		assert.Equal(t, uint64(depositX), env.tokenAmount(env.holding))
		assert.True(t, env.record().IsInitialized())
	}
}

func TestExchange_SubstitutedAccounts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(env *escrowEnv, p *client.ExchangeParam)
	}{
		{
			name: "holding account",
			mutate: func(env *escrowEnv, p *client.ExchangeParam) {
				fake := key("fake-holding")
				env.ledger().CreateTokenAccount(fake, env.mintX, env.pda(), depositX,
					env.rt.Rent().MinimumBalance(consts.TokenAccountSize))
				p.HoldingAccount = fake
			},
		},
		{
			name: "initializer",
			mutate: func(env *escrowEnv, p *client.ExchangeParam) {
				p.Initializer = env.taker
			},
		},
		{
			name: "initializer receive account",
			mutate: func(env *escrowEnv, p *client.ExchangeParam) {
				p.InitializerReceiveAccount = env.takerSend
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEscrowEnv(t)
			require.NoError(t, env.initEscrow(expectedY))

			p := env.exchangeParam(depositX)
			tt.mutate(env, &p)
			err := env.rt.ProcessInstruction(env.exchangeIx(p), env.taker)
			assert.ErrorIs(t, err, escrow.ErrInvalidAccountData)

			assert.Equal(t, uint64(takerY), env.tokenAmount(env.takerSend))
			assert.Equal(t, uint64(depositX), env.tokenAmount(env.holding))
			assert.True(t, env.record().IsInitialized())
		})
	}
}

func TestExchange_MissingSignature(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	ix := env.exchangeIx(env.exchangeParam(depositX))
	ix.Accounts[0].IsSigner = false
	err := env.rt.ProcessInstruction(ix)
	assert.ErrorIs(t, err, escrow.ErrMissingRequiredSignature)
}

func TestExchange_ReadonlyAccount(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	ix := env.exchangeIx(env.exchangeParam(depositX))
	ix.Accounts[5].IsWritable = false
	err := env.rt.ProcessInstruction(ix, env.taker)
	assert.ErrorIs(t, err, escrow.ErrInvalidArgument)
}

func TestExchange_WrongPDA(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))

	ix := env.exchangeIx(env.exchangeParam(depositX))
	ix.Accounts[8].PubKey = key("not-the-pda").ToCommon()
	err := env.rt.ProcessInstruction(ix, env.taker)
	assert.ErrorIs(t, err, escrow.ErrInvalidSeeds)
}

func TestExchange_UninitializedRecord(t *testing.T) {
	env := newEscrowEnv(t)

	err := env.exchange(depositX)
	assert.ErrorIs(t, err, escrow.ErrUninitializedAccount)
}

func TestExchange_TakerInsufficientFundsRollsBack(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))
	env.ledger().CreateTokenAccount(env.takerSend, env.mintY, env.taker, expectedY-1,
		env.rt.Rent().MinimumBalance(consts.TokenAccountSize))

	err := env.exchange(depositX)
	assert.ErrorIs(t, err, escrow.Custom(runtime.TokenErrInsufficientFunds))

	assert.Equal(t, uint64(0), env.tokenAmount(env.initializerReceive))
	assert.Equal(t, uint64(0), env.tokenAmount(env.takerReceive))
	assert.Equal(t, uint64(depositX), env.tokenAmount(env.holding))
	assert.True(t, env.record().IsInitialized())
}

func TestExchange_WrongMintRejectedByTokenProgram(t *testing.T) {
	env := newEscrowEnv(t)
	require.NoError(t, env.initEscrow(expectedY))
	// taker 用 token X 冒充 token Y 支付
	env.ledger().CreateTokenAccount(env.takerSend, env.mintX, env.taker, takerY,
		env.rt.Rent().MinimumBalance(consts.TokenAccountSize))

	err := env.exchange(depositX)
	assert.ErrorIs(t, err, escrow.Custom(runtime.TokenErrMintMismatch))
	assert.True(t, env.record().IsInitialized())
}
