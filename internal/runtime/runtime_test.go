package runtime

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(label string) types.Pubkey {
	return types.Pubkey(sha256.Sum256([]byte(label)))
}

// programFunc 把函数适配为 Program
type programFunc func(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error

func (f programFunc) Process(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error {
	return f(programID, accounts, data)
}

func meta(k types.Pubkey, signer, writable bool) sdktypes.AccountMeta {
	return sdktypes.AccountMeta{PubKey: k.ToCommon(), IsSigner: signer, IsWritable: writable}
}

func newTestRuntime() *Runtime {
	return New(NewLedger(), DefaultRent())
}

func TestRentMinimumBalance(t *testing.T) {
	rent := DefaultRent()
	assert.Equal(t, uint64(890_880), rent.MinimumBalance(0))
	assert.Equal(t, uint64(2_039_280), rent.MinimumBalance(consts.TokenAccountSize))
	assert.Equal(t, uint64(1_733_040), rent.MinimumBalance(escrow.RecordLen))

	assert.True(t, rent.IsExempt(1_733_040, escrow.RecordLen))
	assert.False(t, rent.IsExempt(1_733_039, escrow.RecordLen))
}

func TestLedgerSetRemovesEmptyAccounts(t *testing.T) {
	l := NewLedger()
	k := testKey("a")
	l.Airdrop(k, 10)
	require.True(t, l.Exists(k))

	l.Set(k, &Account{Lamports: 0, Owner: consts.SystemProgram})
	assert.False(t, l.Exists(k))
	assert.Equal(t, uint64(0), l.Lamports(k))
}

func TestLedgerGetReturnsCopy(t *testing.T) {
	l := NewLedger()
	k := testKey("a")
	l.CreateAccount(k, consts.SystemProgram, 1, 4)

	acc, ok := l.Get(k)
	require.True(t, ok)
	acc.Data[0] = 9

	again, _ := l.Get(k)
	assert.Equal(t, byte(0), again.Data[0])
}

func TestProcessInstruction_ProgramNotFound(t *testing.T) {
	rt := newTestRuntime()
	err := rt.ProcessInstruction(sdktypes.Instruction{ProgramID: testKey("missing").ToCommon()})
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestProcessInstruction_UnsignedSigner(t *testing.T) {
	rt := newTestRuntime()
	pid := testKey("program")
	rt.RegisterProgram(pid, programFunc(func(types.Pubkey, []*escrow.AccountInfo, []byte) error { return nil }))

	user := testKey("user")
	err := rt.ProcessInstruction(sdktypes.Instruction{
		ProgramID: pid.ToCommon(),
		Accounts:  []sdktypes.AccountMeta{meta(user, true, false)},
	})
	assert.ErrorIs(t, err, ErrUnsignedSignerAccount)
}

func TestProcessInstruction_CommitAndRollback(t *testing.T) {
	rt := newTestRuntime()
	pid := testKey("program")
	data := testKey("data")
	rt.Ledger().CreateAccount(data, pid, 1_000_000, 8)

	var fail bool
	rt.RegisterProgram(pid, programFunc(func(_ types.Pubkey, accounts []*escrow.AccountInfo, _ []byte) error {
		accounts[0].Data[0]++
		if fail {
			return escrow.ErrInvalidArgument
		}
		return nil
	}))
	ix := sdktypes.Instruction{
		ProgramID: pid.ToCommon(),
		Accounts:  []sdktypes.AccountMeta{meta(data, false, true)},
	}

	require.NoError(t, rt.ProcessInstruction(ix))
	acc, _ := rt.Ledger().Get(data)
	assert.Equal(t, byte(1), acc.Data[0])

	fail = true
	assert.ErrorIs(t, rt.ProcessInstruction(ix), escrow.ErrInvalidArgument)
	acc, _ = rt.Ledger().Get(data)
	assert.Equal(t, byte(1), acc.Data[0])
}

func TestProcessInstruction_VerifyChanges(t *testing.T) {
	pid := testKey("program")
	owned := testKey("owned")
	foreign := testKey("foreign")

	tests := []struct {
		name     string
		writable bool
		target   types.Pubkey
		mutate   func(accounts []*escrow.AccountInfo)
		wantErr  error
	}{
		{
			name:     "readonly data modified",
			writable: false,
			target:   owned,
			mutate:   func(a []*escrow.AccountInfo) { a[0].Data[0] = 1 },
			wantErr:  ErrReadonlyModified,
		},
		{
			name:     "foreign data modified",
			writable: true,
			target:   foreign,
			mutate:   func(a []*escrow.AccountInfo) { a[0].Data[0] = 1 },
			wantErr:  ErrExternalDataModified,
		},
		{
			name:     "foreign lamports spent",
			writable: true,
			target:   foreign,
			mutate: func(a []*escrow.AccountInfo) {
				a[0].Lamports--
				a[1].Lamports++
			},
			wantErr: ErrExternalLamportSpend,
		},
		{
			name:     "lamports minted",
			writable: true,
			target:   owned,
			mutate:   func(a []*escrow.AccountInfo) { a[0].Lamports++ },
			wantErr:  ErrUnbalancedInstruction,
		},
		{
			name:     "owned account debited to writable sink",
			writable: true,
			target:   owned,
			mutate: func(a []*escrow.AccountInfo) {
				a[0].Lamports--
				a[1].Lamports++
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime()
			rt.Ledger().CreateAccount(owned, pid, 1_000_000, 8)
			rt.Ledger().CreateAccount(foreign, consts.SystemProgram, 1_000_000, 8)
			sink := testKey("sink")
			rt.Ledger().Airdrop(sink, 1)

			rt.RegisterProgram(pid, programFunc(func(_ types.Pubkey, accounts []*escrow.AccountInfo, _ []byte) error {
				tt.mutate(accounts)
				return nil
			}))

			err := rt.ProcessInstruction(sdktypes.Instruction{
				ProgramID: pid.ToCommon(),
				Accounts: []sdktypes.AccountMeta{
					meta(tt.target, false, tt.writable),
					meta(sink, false, true),
				},
			})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvokeSigned_PrivilegeChecks(t *testing.T) {
	caller := testKey("caller")
	callee := testKey("callee")
	target := testKey("target")

	pda, bump, err := escrow.FindEscrowAuthority(caller)
	require.NoError(t, err)

	tests := []struct {
		name     string
		calleeIx func() sdktypes.Instruction
		seeds    [][][]byte
		wantErr  error
	}{
		{
			name: "escalate writable",
			calleeIx: func() sdktypes.Instruction {
				return sdktypes.Instruction{ProgramID: callee.ToCommon(), Accounts: []sdktypes.AccountMeta{meta(target, false, true)}}
			},
			wantErr: ErrPrivilegeEscalation,
		},
		{
			name: "pda signer without seeds",
			calleeIx: func() sdktypes.Instruction {
				return sdktypes.Instruction{ProgramID: callee.ToCommon(), Accounts: []sdktypes.AccountMeta{meta(pda, true, false)}}
			},
			wantErr: ErrPrivilegeEscalation,
		},
		{
			name: "pda signer with seeds",
			calleeIx: func() sdktypes.Instruction {
				return sdktypes.Instruction{ProgramID: callee.ToCommon(), Accounts: []sdktypes.AccountMeta{meta(pda, true, false)}}
			},
			seeds: [][][]byte{escrow.EscrowAuthoritySeeds(bump)},
		},
		{
			name: "missing account",
			calleeIx: func() sdktypes.Instruction {
				return sdktypes.Instruction{ProgramID: callee.ToCommon(), Accounts: []sdktypes.AccountMeta{meta(testKey("absent"), false, false)}}
			},
			wantErr: ErrMissingCalleeAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime()
			var calleeSawSigner bool
			rt.RegisterProgram(callee, programFunc(func(_ types.Pubkey, accounts []*escrow.AccountInfo, _ []byte) error {
				calleeSawSigner = len(accounts) > 0 && accounts[0].IsSigner
				return nil
			}))
			rt.RegisterProgram(caller, programFunc(func(_ types.Pubkey, accounts []*escrow.AccountInfo, _ []byte) error {
				return rt.InvokeSigned(tt.calleeIx(), accounts, tt.seeds)
			}))

			err := rt.ProcessInstruction(sdktypes.Instruction{
				ProgramID: caller.ToCommon(),
				Accounts: []sdktypes.AccountMeta{
					meta(target, false, false),
					meta(pda, false, false),
					meta(callee, false, false),
				},
			})
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, calleeSawSigner)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvoke_CallDepthExceeded(t *testing.T) {
	rt := newTestRuntime()
	pid := testKey("recursive")
	rt.RegisterProgram(pid, programFunc(func(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error {
		return rt.Invoke(sdktypes.Instruction{
			ProgramID: programID.ToCommon(),
			Accounts:  []sdktypes.AccountMeta{meta(programID, false, false)},
		}, accounts)
	}))

	err := rt.ProcessInstruction(sdktypes.Instruction{
		ProgramID: pid.ToCommon(),
		Accounts:  []sdktypes.AccountMeta{meta(pid, false, false)},
	})
	assert.ErrorIs(t, err, ErrCallDepthExceeded)
}

func TestInvoke_OutsideExecution(t *testing.T) {
	rt := newTestRuntime()
	err := rt.Invoke(sdktypes.Instruction{ProgramID: testKey("x").ToCommon()}, nil)
	assert.Error(t, err)
}

func TestInvoke_CallerChangesVerifiedBeforeCPI(t *testing.T) {
	caller := testKey("caller")
	callee := testKey("callee")
	wallet := testKey("wallet")
	tokenAcc := testKey("token-account")

	tests := []struct {
		name    string
		mutate  func(accounts []*escrow.AccountInfo)
		wantErr error
	}{
		{
			name: "mint lamports into system account",
			mutate: func(accounts []*escrow.AccountInfo) {
				accounts[0].Lamports += 1_000_000
			},
			wantErr: ErrUnbalancedInstruction,
		},
		{
			name: "rewrite token account amount",
			mutate: func(accounts []*escrow.AccountInfo) {
				// amount 位于 mint 与 owner 之后
				binary.LittleEndian.PutUint64(accounts[1].Data[64:72], 999)
			},
			wantErr: ErrExternalDataModified,
		},
		{
			name:   "no change",
			mutate: func([]*escrow.AccountInfo) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime()
			rt.Ledger().Set(wallet, &Account{Lamports: 5_000, Owner: consts.SystemProgram})
			rt.Ledger().CreateTokenAccount(tokenAcc, testKey("mint"), testKey("holder"), 0, 2_000)

			calleeRan := false
			rt.RegisterProgram(callee, programFunc(func(types.Pubkey, []*escrow.AccountInfo, []byte) error {
				calleeRan = true
				return nil
			}))
			rt.RegisterProgram(caller, programFunc(func(_ types.Pubkey, accounts []*escrow.AccountInfo, _ []byte) error {
				tt.mutate(accounts)
				return rt.Invoke(sdktypes.Instruction{
					ProgramID: callee.ToCommon(),
					Accounts:  []sdktypes.AccountMeta{meta(wallet, false, false)},
				}, accounts)
			}))

			err := rt.ProcessInstruction(sdktypes.Instruction{
				ProgramID: caller.ToCommon(),
				Accounts: []sdktypes.AccountMeta{
					meta(wallet, false, true),
					meta(tokenAcc, false, true),
					meta(callee, false, false),
				},
			})
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, calleeRan)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, calleeRan)

			// 失败的指令不落账
			acc, ok := rt.Ledger().Get(wallet)
			require.True(t, ok)
			assert.Equal(t, uint64(5_000), acc.Lamports)
			_, amount, err := rt.Ledger().TokenAccount(tokenAcc)
			require.NoError(t, err)
			assert.Zero(t, amount)
		})
	}
}
