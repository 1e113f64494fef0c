package consts

import "escrow-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr = "11111111111111111111111111111111"
	TokenProgramStr  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	BPFLoaderStr     = "BPFLoader2111111111111111111111111111111111"
)

var (
	// Programs
	SystemProgram = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram  = types.PubkeyFromBase58(TokenProgramStr)
	BPFLoader     = types.PubkeyFromBase58(BPFLoaderStr)
)
