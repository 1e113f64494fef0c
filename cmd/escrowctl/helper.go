package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"escrow-sol/internal/client"
	"escrow-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const defaultTimeout = 10 * time.Second

func programID(ctx *cli.Context) (types.Pubkey, error) {
	s := ctx.String("program")
	if s == "" {
		return types.Pubkey{}, errors.New("--program (or ESCROW_PROGRAM_ID) is required")
	}
	return pubkeyFlagValue("program", s)
}

func pubkeyFlag(ctx *cli.Context, name string) (types.Pubkey, error) {
	s := ctx.String(name)
	if s == "" {
		return types.Pubkey{}, errors.Errorf("--%s is required", name)
	}
	return pubkeyFlagValue(name, s)
}

func pubkeyFlagValue(name, s string) (types.Pubkey, error) {
	pk, err := types.TryPubkeyFromBase58(s)
	if err != nil {
		return types.Pubkey{}, errors.Wrapf(err, "invalid --%s", name)
	}
	return pk, nil
}

func getClient(ctx *cli.Context) (*client.EscrowClient, error) {
	program, err := programID(ctx)
	if err != nil {
		return nil, err
	}
	var tokenProgram types.Pubkey
	if s := ctx.String("token_program"); s != "" {
		if tokenProgram, err = pubkeyFlagValue("token_program", s); err != nil {
			return nil, err
		}
	}
	return client.NewEscrowClient(client.Options{
		Endpoint:       ctx.String("rpc"),
		ProgramID:      program,
		TokenProgramID: tokenProgram,
		Timeout:        ctx.Duration("timeout"),
	}), nil
}

// loadKeypair 读取 solana-keygen 生成的 JSON 密钥文件（64 个字节组成的数组）
func loadKeypair(path string) (sdktypes.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sdktypes.Account{}, errors.Wrap(err, "read keypair")
	}
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return sdktypes.Account{}, errors.Wrapf(err, "parse keypair %s", path)
	}
	key := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return sdktypes.Account{}, errors.Errorf("keypair %s: byte %d out of range", path, i)
		}
		key[i] = byte(v)
	}
	account, err := sdktypes.AccountFromBytes(key)
	if err != nil {
		return sdktypes.Account{}, errors.Wrapf(err, "keypair %s", path)
	}
	return account, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(data))
}
