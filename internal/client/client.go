package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	sdkclient "github.com/blocto/solana-go-sdk/client"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

var ErrAccountNotFound = errors.New("account not found")

const defaultRequestTimeout = 10 * time.Second

type Options struct {
	Endpoint       string
	ProgramID      types.Pubkey
	TokenProgramID types.Pubkey  // 为空时使用标准 Token Program
	Timeout        time.Duration // 单次 RPC 超时，<=0 时为 10s
}

// EscrowClient 通过 RPC 读取 escrow 相关账户并提交交易
type EscrowClient struct {
	rpc            *sdkclient.Client
	programID      types.Pubkey
	tokenProgramID types.Pubkey
	timeout        time.Duration
}

func NewEscrowClient(opts Options) *EscrowClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	return &EscrowClient{
		rpc:            sdkclient.NewClient(opts.Endpoint),
		programID:      opts.ProgramID,
		tokenProgramID: tokenProgramOrDefault(opts.TokenProgramID),
		timeout:        opts.Timeout,
	}
}

func (c *EscrowClient) ProgramID() types.Pubkey {
	return c.programID
}

func (c *EscrowClient) TokenProgramID() types.Pubkey {
	return c.tokenProgramID
}

func (c *EscrowClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// GetEscrow 读取并解码 escrow 记录。
// 账户不存在（已被 Exchange 关闭）时返回 ErrAccountNotFound；
// 账户存在但未初始化时返回 Initialized=false 的记录。
func (c *EscrowClient) GetEscrow(ctx context.Context, addr types.Pubkey) (*escrow.Record, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.rpc.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, fmt.Errorf("get escrow account %s: %w", addr, err)
	}
	if info.Lamports == 0 && len(info.Data) == 0 {
		return nil, fmt.Errorf("escrow account %s: %w", addr, ErrAccountNotFound)
	}
	if types.PubkeyFromCommon(info.Owner) != c.programID {
		return nil, fmt.Errorf("escrow account %s owned by %s, want %s", addr, info.Owner.ToBase58(), c.programID)
	}

	record, err := escrow.UnpackUnchecked(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode escrow account %s: %w", addr, err)
	}
	return &record, nil
}

// GetTokenAmount 读取 SPL token 账户余额
func (c *EscrowClient) GetTokenAmount(ctx context.Context, addr types.Pubkey) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.rpc.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return 0, fmt.Errorf("get token account %s: %w", addr, err)
	}
	if info.Lamports == 0 && len(info.Data) == 0 {
		return 0, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	if types.PubkeyFromCommon(info.Owner) != c.tokenProgramID {
		return 0, fmt.Errorf("account %s is not a token account (owner %s)", addr, info.Owner.ToBase58())
	}
	state, err := sdktoken.TokenAccountFromData(info.Data)
	if err != nil {
		return 0, fmt.Errorf("decode token account %s: %w", addr, err)
	}
	return state.Amount, nil
}

// MinimumBalanceForRecord 记录账户免租所需 lamports
func (c *EscrowClient) MinimumBalanceForRecord(ctx context.Context) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rpc.GetMinimumBalanceForRentExemption(ctx, escrow.RecordLen)
}

// SendInstructions 用最新 blockhash 组装交易、签名并发送，返回交易签名
func (c *EscrowClient) SendInstructions(
	ctx context.Context,
	feePayer sdktypes.Account,
	signers []sdktypes.Account,
	instructions ...sdktypes.Instruction,
) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	latest, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: sdktypes.NewMessage(sdktypes.NewMessageParam{
			FeePayer:        feePayer.PublicKey,
			RecentBlockhash: latest.Blockhash,
			Instructions:    instructions,
		}),
		Signers: dedupSigners(append([]sdktypes.Account{feePayer}, signers...)),
	})
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

func dedupSigners(signers []sdktypes.Account) []sdktypes.Account {
	seen := make(map[types.Pubkey]bool, len(signers))
	result := make([]sdktypes.Account, 0, len(signers))
	for _, s := range signers {
		key := types.PubkeyFromCommon(s.PublicKey)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, s)
	}
	return result
}
