package runtime

import (
	"encoding/binary"

	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// SPL Token 自定义错误码（与链上 TokenError 枚举顺序一致）
const (
	TokenErrInsufficientFunds         uint32 = 1
	TokenErrMintMismatch              uint32 = 3
	TokenErrOwnerMismatch             uint32 = 4
	TokenErrUninitializedState        uint32 = 9
	TokenErrNonNativeHasBalance       uint32 = 11
	TokenErrInvalidInstruction        uint32 = 12
	TokenErrOverflow                  uint32 = 14
	TokenErrAuthorityTypeNotSupported uint32 = 15
	TokenErrAccountFrozen             uint32 = 17
)

// TokenProgram 是 SPL Token 程序的内存实现，只覆盖 escrow 用到的三条指令：
// Transfer / SetAuthority / CloseAccount。
type TokenProgram struct{}

func NewTokenProgram() *TokenProgram {
	return &TokenProgram{}
}

func (tp *TokenProgram) Process(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return escrow.Custom(TokenErrInvalidInstruction)
	}

	switch data[0] {
	case byte(sdktoken.InstructionTransfer):
		return tp.processTransfer(programID, accounts, data[1:])
	case byte(sdktoken.InstructionSetAuthority):
		return tp.processSetAuthority(programID, accounts, data[1:])
	case byte(sdktoken.InstructionCloseAccount):
		return tp.processCloseAccount(programID, accounts)
	default:
		return escrow.Custom(TokenErrInvalidInstruction)
	}
}

// Layout: [source, destination, authority]，data = amount(u64 LE)
func (tp *TokenProgram) processTransfer(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error {
	if len(accounts) < 3 {
		return escrow.ErrNotEnoughAccountKeys
	}
	if len(data) < 8 {
		return escrow.Custom(TokenErrInvalidInstruction)
	}
	amount := binary.LittleEndian.Uint64(data[:8])
	source, destination, authority := accounts[0], accounts[1], accounts[2]

	if source.Owner != programID || destination.Owner != programID {
		return escrow.ErrIncorrectProgramId
	}
	src, err := unpackTokenAccount(source.Data)
	if err != nil {
		return err
	}
	dst, err := unpackTokenAccount(destination.Data)
	if err != nil {
		return err
	}
	if uint8(src.State) == tokenStateFrozen || uint8(dst.State) == tokenStateFrozen {
		return escrow.Custom(TokenErrAccountFrozen)
	}
	if src.Amount < amount {
		return escrow.Custom(TokenErrInsufficientFunds)
	}
	if src.Mint != dst.Mint {
		return escrow.Custom(TokenErrMintMismatch)
	}
	if err := validateOwner(types.PubkeyFromCommon(src.Owner), authority); err != nil {
		return err
	}

	// 自转账：校验通过后不做任何修改
	if source.Key == destination.Key {
		return nil
	}

	if dst.Amount+amount < dst.Amount {
		return escrow.Custom(TokenErrOverflow)
	}
	src.Amount -= amount
	dst.Amount += amount

	if err := packTokenAccount(src, source.Data); err != nil {
		return err
	}
	return packTokenAccount(dst, destination.Data)
}

// Layout: [account, currentAuthority]，data = authorityType(u8) + COption<Pubkey>(1 字节 tag)
func (tp *TokenProgram) processSetAuthority(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error {
	if len(accounts) < 2 {
		return escrow.ErrNotEnoughAccountKeys
	}
	if len(data) < 2 {
		return escrow.Custom(TokenErrInvalidInstruction)
	}
	account, authority := accounts[0], accounts[1]

	authorityType := sdktoken.AuthorityType(data[0])
	var newAuthority *types.Pubkey
	switch data[1] {
	case 0:
	case 1:
		pk, err := types.PubkeyFromBytes(sliceOrNil(data, 2, 2+types.PubkeyLen))
		if err != nil {
			return escrow.Custom(TokenErrInvalidInstruction)
		}
		newAuthority = &pk
	default:
		return escrow.Custom(TokenErrInvalidInstruction)
	}

	if account.Owner != programID {
		return escrow.ErrIncorrectProgramId
	}
	state, err := unpackTokenAccount(account.Data)
	if err != nil {
		return err
	}
	if uint8(state.State) == tokenStateFrozen {
		return escrow.Custom(TokenErrAccountFrozen)
	}

	switch authorityType {
	case sdktoken.AuthorityTypeAccountOwner:
		if err := validateOwner(types.PubkeyFromCommon(state.Owner), authority); err != nil {
			return err
		}
		if newAuthority == nil {
			return escrow.Custom(TokenErrInvalidInstruction)
		}
		state.Owner = newAuthority.ToCommon()
		state.Delegate = nil
		state.DelegatedAmount = 0

	case sdktoken.AuthorityTypeCloseAccount:
		current := state.Owner
		if state.CloseAuthority != nil {
			current = *state.CloseAuthority
		}
		if err := validateOwner(types.PubkeyFromCommon(current), authority); err != nil {
			return err
		}
		if newAuthority == nil {
			state.CloseAuthority = nil
		} else {
			pk := newAuthority.ToCommon()
			state.CloseAuthority = &pk
		}

	default:
		return escrow.Custom(TokenErrAuthorityTypeNotSupported)
	}

	return packTokenAccount(state, account.Data)
}

// Layout: [account, destination, authority]
func (tp *TokenProgram) processCloseAccount(programID types.Pubkey, accounts []*escrow.AccountInfo) error {
	if len(accounts) < 3 {
		return escrow.ErrNotEnoughAccountKeys
	}
	account, destination, authority := accounts[0], accounts[1], accounts[2]
	if account.Key == destination.Key {
		return escrow.ErrInvalidAccountData
	}
	if account.Owner != programID {
		return escrow.ErrIncorrectProgramId
	}

	state, err := unpackTokenAccount(account.Data)
	if err != nil {
		return err
	}
	if state.IsNative == nil && state.Amount != 0 {
		return escrow.Custom(TokenErrNonNativeHasBalance)
	}

	closeAuthority := state.Owner
	if state.CloseAuthority != nil {
		closeAuthority = *state.CloseAuthority
	}
	if err := validateOwner(types.PubkeyFromCommon(closeAuthority), authority); err != nil {
		return err
	}

	if destination.Lamports+account.Lamports < destination.Lamports {
		return escrow.Custom(TokenErrOverflow)
	}
	destination.Lamports += account.Lamports
	account.Lamports = 0
	clear(account.Data)
	return nil
}

// validateOwner 校验 authority 账户即 expected 且已签名
func validateOwner(expected types.Pubkey, authority *escrow.AccountInfo) error {
	if authority.Key != expected {
		return escrow.Custom(TokenErrOwnerMismatch)
	}
	if !authority.IsSigner {
		return escrow.ErrMissingRequiredSignature
	}
	return nil
}

func sliceOrNil(b []byte, from, to int) []byte {
	if len(b) < to {
		return nil
	}
	return b[from:to]
}
