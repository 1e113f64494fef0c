package runtime

import (
	"sort"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/types"
)

// Account 是账本中持久化的账户
type Account struct {
	Lamports   uint64
	Owner      types.Pubkey
	Data       []byte
	Executable bool
}

func (a *Account) clone() *Account {
	c := *a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return &c
}

// Ledger 内存账本：pubkey → Account。
// 不做并发控制，由 Runtime 串行访问。
type Ledger struct {
	accounts map[types.Pubkey]*Account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[types.Pubkey]*Account)}
}

// Get 返回账户副本，不存在时 ok=false
func (l *Ledger) Get(key types.Pubkey) (*Account, bool) {
	acc, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return acc.clone(), true
}

// Set 写入账户副本；lamports 为 0 的非程序账户视为已回收，直接删除
func (l *Ledger) Set(key types.Pubkey, acc *Account) {
	if acc.Lamports == 0 && !acc.Executable {
		delete(l.accounts, key)
		return
	}
	l.accounts[key] = acc.clone()
}

func (l *Ledger) Exists(key types.Pubkey) bool {
	_, ok := l.accounts[key]
	return ok
}

// Lamports 返回账户余额，不存在为 0
func (l *Ledger) Lamports(key types.Pubkey) uint64 {
	if acc, ok := l.accounts[key]; ok {
		return acc.Lamports
	}
	return 0
}

// CreateAccount 创建指定 owner 与数据长度的账户（数据全 0）
func (l *Ledger) CreateAccount(key, owner types.Pubkey, lamports uint64, dataLen int) {
	l.Set(key, &Account{
		Lamports: lamports,
		Owner:    owner,
		Data:     make([]byte, dataLen),
	})
}

// Airdrop 给系统账户充值
func (l *Ledger) Airdrop(key types.Pubkey, lamports uint64) {
	acc, ok := l.accounts[key]
	if !ok {
		l.Set(key, &Account{Lamports: lamports, Owner: consts.SystemProgram})
		return
	}
	acc.Lamports += lamports
}

// Keys 返回有序的账户列表，便于测试输出稳定
func (l *Ledger) Keys() []types.Pubkey {
	keys := make([]types.Pubkey, 0, len(l.accounts))
	for k := range l.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i][:]) < string(keys[j][:])
	})
	return keys
}
