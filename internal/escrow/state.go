package escrow

import (
	"escrow-sol/internal/types"

	"github.com/near/borsh-go"
)

// RecordLen escrow 记录账户数据的固定长度
//
// 布局（字节偏移）：
//
//	[0]        initialized（0 / 1）
//	[1..33)    initializer 公钥
//	[33..65)   临时 token 账户（托管账户）公钥
//	[65..97)   initializer 接收 token Y 的账户公钥
//	[97..105)  expected_amount（u64 LE）
//	[105..113) unlock_time（u64 LE）
//	[113..121) time_out（u64 LE）
const RecordLen = 121

// Record 描述一笔 escrow 交易的条款与状态，存放在调用方提供的记录账户中。
// 字段顺序即 borsh 编码顺序，与上面的字节布局一一对应。
type Record struct {
	Initialized              bool
	InitializerPubkey        types.Pubkey // 发起人，只有其接收账户可以被入账
	HoldingAccountPubkey     types.Pubkey // 托管 token X 的临时账户
	InitializerReceivePubkey types.Pubkey // 交易完成时必须入账 token Y 的账户
	ExpectedAmount           uint64       // 发起人要求的 token Y 数量，写入后不可变

	// 时间锁字段只占位存储，当前没有任何状态迁移读取或校验它们
	UnlockTime uint64
	TimeOut    uint64
}

func (r Record) IsInitialized() bool {
	return r.Initialized
}

// UnpackUnchecked 解码记录，不要求已初始化；全 0 数据解码为未初始化的空记录。
// initialized 字节不是 0 / 1 时返回 ErrInvalidAccountData。
func UnpackUnchecked(src []byte) (Record, error) {
	if len(src) != RecordLen {
		return Record{}, ErrInvalidAccountData
	}
	var r Record
	if err := borsh.Deserialize(&r, src); err != nil {
		return Record{}, ErrInvalidAccountData
	}
	return r, nil
}

// Unpack 解码记录并要求其已初始化
func Unpack(src []byte) (Record, error) {
	r, err := UnpackUnchecked(src)
	if err != nil {
		return Record{}, err
	}
	if !r.Initialized {
		return Record{}, ErrUninitializedAccount
	}
	return r, nil
}

// Pack 将记录编码写入 dst，dst 长度必须为 RecordLen
func (r *Record) Pack(dst []byte) error {
	if len(dst) != RecordLen {
		return ErrInvalidAccountData
	}
	// 按值序列化：borsh 会把指针编码为 Option，多出一个标记字节
	data, err := borsh.Serialize(*r)
	if err != nil {
		return err
	}
	if len(data) != RecordLen {
		return ErrInvalidAccountData
	}
	copy(dst, data)
	return nil
}
