package runtime

import (
	"encoding/binary"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// SPL Token 账户状态取值
const (
	tokenStateUninitialized uint8 = 0
	tokenStateInitialized   uint8 = 1
	tokenStateFrozen        uint8 = 2
)

// SPL Token 账户布局（165 字节）：
//
//	[0..32)    mint
//	[32..64)   owner
//	[64..72)   amount
//	[72..108)  delegate（COption: 4 字节 tag + 32 字节）
//	[108]      state
//	[109..121) is_native（COption: 4 字节 tag + u64）
//	[121..129) delegated_amount
//	[129..165) close_authority（COption）
const (
	offTokenMint            = 0
	offTokenOwner           = 32
	offTokenAmount          = 64
	offTokenDelegate        = 72
	offTokenState           = 108
	offTokenIsNative        = 109
	offTokenDelegatedAmount = 121
	offTokenCloseAuthority  = 129
)

// unpackTokenAccount 解码并要求账户已初始化
func unpackTokenAccount(data []byte) (sdktoken.TokenAccount, error) {
	if len(data) != consts.TokenAccountSize {
		return sdktoken.TokenAccount{}, escrow.ErrInvalidAccountData
	}
	state, err := sdktoken.TokenAccountFromData(data)
	if err != nil {
		return sdktoken.TokenAccount{}, escrow.ErrInvalidAccountData
	}
	if uint8(state.State) == tokenStateUninitialized {
		return sdktoken.TokenAccount{}, escrow.Custom(TokenErrUninitializedState)
	}
	return state, nil
}

// packTokenAccount 按 SPL 布局写入 dst
func packTokenAccount(state sdktoken.TokenAccount, dst []byte) error {
	if len(dst) != consts.TokenAccountSize {
		return escrow.ErrInvalidAccountData
	}
	clear(dst)

	copy(dst[offTokenMint:offTokenOwner], state.Mint[:])
	copy(dst[offTokenOwner:offTokenAmount], state.Owner[:])
	binary.LittleEndian.PutUint64(dst[offTokenAmount:offTokenDelegate], state.Amount)
	packOptionPubkey(dst[offTokenDelegate:offTokenState], state.Delegate)
	dst[offTokenState] = uint8(state.State)
	if state.IsNative != nil {
		binary.LittleEndian.PutUint32(dst[offTokenIsNative:], 1)
		binary.LittleEndian.PutUint64(dst[offTokenIsNative+4:offTokenDelegatedAmount], *state.IsNative)
	}
	binary.LittleEndian.PutUint64(dst[offTokenDelegatedAmount:offTokenCloseAuthority], state.DelegatedAmount)
	packOptionPubkey(dst[offTokenCloseAuthority:consts.TokenAccountSize], state.CloseAuthority)
	return nil
}

func packOptionPubkey(dst []byte, pk *common.PublicKey) {
	if pk == nil {
		return
	}
	binary.LittleEndian.PutUint32(dst[:4], 1)
	copy(dst[4:36], pk[:])
}

// NewTokenAccountData 构造一个已初始化的 token 账户数据
func NewTokenAccountData(mint, owner types.Pubkey, amount uint64) []byte {
	data := make([]byte, consts.TokenAccountSize)
	_ = packTokenAccount(sdktoken.TokenAccount{
		Mint:   mint.ToCommon(),
		Owner:  owner.ToCommon(),
		Amount: amount,
		State:  sdktoken.TokenAccountState(tokenStateInitialized),
	}, data)
	return data
}

// CreateTokenAccount 在账本中创建一个归 Token Program 所有的已初始化 token 账户
func (l *Ledger) CreateTokenAccount(key, mint, owner types.Pubkey, amount, lamports uint64) {
	l.Set(key, &Account{
		Lamports: lamports,
		Owner:    consts.TokenProgram,
		Data:     NewTokenAccountData(mint, owner, amount),
	})
}

// TokenAccount 读取 token 账户的 owner 与余额
func (l *Ledger) TokenAccount(key types.Pubkey) (owner types.Pubkey, amount uint64, err error) {
	acc, ok := l.accounts[key]
	if !ok {
		return types.Pubkey{}, 0, escrow.ErrUninitializedAccount
	}
	state, err := unpackTokenAccount(acc.Data)
	if err != nil {
		return types.Pubkey{}, 0, err
	}
	return types.PubkeyFromCommon(state.Owner), state.Amount, nil
}
