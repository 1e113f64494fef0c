package main

import (
	"escrow-sol/internal/client"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/system"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/urfave/cli/v2"
)

var initEscrow = cli.Command{
	Name:  "init",
	Usage: "open an escrow: lock the holding account and record the expected amount",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "keypair",
			Usage:    "initializer keypair file, also pays the fees",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "holding",
			Usage:    "token account holding the offered token X, owned by the initializer",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "receive",
			Usage:    "initializer's token account that will receive token Y",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "amount",
			Usage:    "amount of token Y expected from the taker",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "escrow",
			Usage: "existing record account; a new one is created when omitted",
		},
	},
	Action: initEscrowAction,
}

func initEscrowAction(ctx *cli.Context) error {
	rpc, err := getClient(ctx)
	if err != nil {
		return err
	}
	initializer, err := loadKeypair(ctx.String("keypair"))
	if err != nil {
		return err
	}
	holding, err := pubkeyFlag(ctx, "holding")
	if err != nil {
		return err
	}
	receive, err := pubkeyFlag(ctx, "receive")
	if err != nil {
		return err
	}

	var (
		instructions []sdktypes.Instruction
		signers      []sdktypes.Account
		escrowKey    types.Pubkey
	)
	if ctx.String("escrow") != "" {
		if escrowKey, err = pubkeyFlag(ctx, "escrow"); err != nil {
			return err
		}
	} else {
		record := sdktypes.NewAccount()
		lamports, err := rpc.MinimumBalanceForRecord(ctx.Context)
		if err != nil {
			return err
		}
		instructions = append(instructions, system.CreateAccount(system.CreateAccountParam{
			From:     initializer.PublicKey,
			New:      record.PublicKey,
			Owner:    rpc.ProgramID().ToCommon(),
			Lamports: lamports,
			Space:    escrow.RecordLen,
		}))
		signers = append(signers, record)
		escrowKey = types.PubkeyFromCommon(record.PublicKey)
	}

	instructions = append(instructions, client.NewInitEscrowInstruction(client.InitEscrowParam{
		ProgramID:      rpc.ProgramID(),
		Initializer:    types.PubkeyFromCommon(initializer.PublicKey),
		HoldingAccount: holding,
		ReceiveAccount: receive,
		EscrowAccount:  escrowKey,
		TokenProgramID: rpc.TokenProgramID(),
		Amount:         ctx.Uint64("amount"),
	}))

	sig, err := rpc.SendInstructions(ctx.Context, initializer, signers, instructions...)
	if err != nil {
		return err
	}
	printJSON(map[string]string{
		"escrow":    escrowKey.String(),
		"signature": sig,
	})
	return nil
}
