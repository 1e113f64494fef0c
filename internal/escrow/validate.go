package escrow

import (
	"escrow-sol/internal/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// 以下均为纯函数：只读取 AccountInfo，返回首个失败原因，不做任何写入。

func requireSigner(acc *AccountInfo) error {
	if !acc.IsSigner {
		return ErrMissingRequiredSignature
	}
	return nil
}

func requireWritable(accs ...*AccountInfo) error {
	for _, acc := range accs {
		if !acc.IsWritable {
			return ErrInvalidArgument
		}
	}
	return nil
}

func requireOwner(acc *AccountInfo, owner types.Pubkey) error {
	if acc.Owner != owner {
		return ErrIncorrectProgramId
	}
	return nil
}

func requireKey(acc *AccountInfo, key types.Pubkey, err error) error {
	if acc.Key != key {
		return err
	}
	return nil
}

func requireRentExempt(rent RentChecker, acc *AccountInfo) error {
	if !rent.IsExempt(acc.Lamports, len(acc.Data)) {
		return ErrNotRentExempt
	}
	return nil
}

// requireRecordAccounts 校验 taker 传入的三个账户与 InitEscrow 时记录的身份完全一致，
// 防止 taker 把资金重定向到发起人未承诺的账户。
func requireRecordAccounts(r *Record, holding, initializer, initializerReceive *AccountInfo) error {
	if r.HoldingAccountPubkey != holding.Key {
		return ErrInvalidAccountData
	}
	if r.InitializerPubkey != initializer.Key {
		return ErrInvalidAccountData
	}
	if r.InitializerReceivePubkey != initializerReceive.Key {
		return ErrInvalidAccountData
	}
	return nil
}

// tokenAccountAmount 读取 SPL Token 账户余额，账户必须归 tokenProgram 所有
func tokenAccountAmount(acc *AccountInfo, tokenProgram types.Pubkey) (uint64, error) {
	if acc.Owner != tokenProgram {
		return 0, ErrIncorrectProgramId
	}
	state, err := sdktoken.TokenAccountFromData(acc.Data)
	if err != nil {
		return 0, ErrInvalidAccountData
	}
	return state.Amount, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}
