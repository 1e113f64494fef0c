package consts

const (
	// EscrowSeed 派生 escrow 权限地址（PDA）所用的种子
	EscrowSeed = "escrow"

	// TokenAccountSize SPL Token 账户数据长度
	TokenAccountSize = 165
)
