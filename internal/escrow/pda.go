package escrow

import (
	"fmt"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

// FindEscrowAuthority 以种子 "escrow" 和程序 ID 派生 PDA。
// PDA 不在 ed25519 曲线上，没有私钥，只能由运行时代表所属程序签名。
func FindEscrowAuthority(programID types.Pubkey) (types.Pubkey, uint8, error) {
	pda, bump, err := common.FindProgramAddress([][]byte{[]byte(consts.EscrowSeed)}, programID.ToCommon())
	if err != nil {
		return types.Pubkey{}, 0, fmt.Errorf("find escrow authority for program %s: %w", programID, err)
	}
	return types.PubkeyFromCommon(pda), bump, nil
}

// EscrowAuthoritySeeds 返回 PDA 签名所需的种子（含 bump）
func EscrowAuthoritySeeds(bump uint8) [][]byte {
	return [][]byte{[]byte(consts.EscrowSeed), {bump}}
}
