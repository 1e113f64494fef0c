package client

import (
	"crypto/sha256"
	"testing"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(label string) types.Pubkey {
	return types.Pubkey(sha256.Sum256([]byte(label)))
}

func TestNewInitEscrowInstruction(t *testing.T) {
	program := testKey("program")
	ix := NewInitEscrowInstruction(InitEscrowParam{
		ProgramID:      program,
		Initializer:    testKey("alice"),
		HoldingAccount: testKey("holding"),
		ReceiveAccount: testKey("receive"),
		EscrowAccount:  testKey("escrow"),
		Amount:         5000,
	})

	assert.Equal(t, program.ToCommon(), ix.ProgramID)
	require.Len(t, ix.Accounts, 5)

	want := []struct {
		key      types.Pubkey
		signer   bool
		writable bool
	}{
		{testKey("alice"), true, false},
		{testKey("holding"), false, true},
		{testKey("receive"), false, false},
		{testKey("escrow"), false, true},
		{consts.TokenProgram, false, false},
	}
	for i, w := range want {
		meta := ix.Accounts[i]
		assert.Equal(t, w.key.ToCommon(), meta.PubKey, "account %d", i)
		assert.Equal(t, w.signer, meta.IsSigner, "account %d signer", i)
		assert.Equal(t, w.writable, meta.IsWritable, "account %d writable", i)
	}

	decoded, err := escrow.UnpackInstruction(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, escrow.InitEscrow{Amount: 5000}, decoded)
}

func TestNewExchangeInstruction(t *testing.T) {
	program := testKey("program")
	record := &escrow.Record{
		Initialized:              true,
		InitializerPubkey:        testKey("alice"),
		HoldingAccountPubkey:     testKey("holding"),
		InitializerReceivePubkey: testKey("receive"),
		ExpectedAmount:           5000,
	}

	param := ExchangeParamFromRecord(program, testKey("escrow"), record)
	param.Taker = testKey("bob")
	param.TakerSendAccount = testKey("bob-y")
	param.TakerReceiveAccount = testKey("bob-x")
	param.TokenProgramID = testKey("token")
	param.Amount = 1000

	ix, err := NewExchangeInstruction(param)
	require.NoError(t, err)
	require.Len(t, ix.Accounts, 9)

	pda, _, err := escrow.FindEscrowAuthority(program)
	require.NoError(t, err)

	wantKeys := []types.Pubkey{
		testKey("bob"), testKey("bob-y"), testKey("bob-x"), testKey("holding"),
		testKey("alice"), testKey("receive"), testKey("escrow"), testKey("token"), pda,
	}
	for i, k := range wantKeys {
		assert.Equal(t, k.ToCommon(), ix.Accounts[i].PubKey, "account %d", i)
	}
	assert.True(t, ix.Accounts[0].IsSigner)
	for i := 1; i < 7; i++ {
		assert.True(t, ix.Accounts[i].IsWritable, "account %d writable", i)
	}
	assert.False(t, ix.Accounts[8].IsSigner, "pda never signs the outer instruction")

	decoded, err := escrow.UnpackInstruction(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, escrow.Exchange{Amount: 1000}, decoded)
}

func TestTokenProgramOrDefault(t *testing.T) {
	assert.Equal(t, consts.TokenProgram, tokenProgramOrDefault(types.Pubkey{}))
	assert.Equal(t, testKey("token"), tokenProgramOrDefault(testKey("token")))
}
