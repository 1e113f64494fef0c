package escrow

import "escrow-sol/internal/types"

// AccountInfo 是调用方随指令传入的账户视图。
// 任何调用方都可以传入任意账户，处理器不能信任其中的任何字段，必须显式校验。
type AccountInfo struct {
	Key        types.Pubkey
	IsSigner   bool // 该账户的控制方是否对本次调用签名
	IsWritable bool
	Lamports   uint64
	Owner      types.Pubkey // 账户所属程序，只有 owner 可以扣款与改写数据
	Data       []byte
	Executable bool
}

// accountIter 按位置依次取出账户，账户不足时返回 NotEnoughAccountKeys
type accountIter struct {
	accounts []*AccountInfo
	pos      int
}

func newAccountIter(accounts []*AccountInfo) *accountIter {
	return &accountIter{accounts: accounts}
}

func (it *accountIter) next() (*AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	acc := it.accounts[it.pos]
	it.pos++
	return acc, nil
}
