package main

import (
	"escrow-sol/internal/client"
	"escrow-sol/internal/types"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var exchange = cli.Command{
	Name:  "exchange",
	Usage: "take an open escrow: pay token Y and receive the held token X",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "keypair",
			Usage:    "taker keypair file, also pays the fees",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "escrow",
			Usage:    "the escrow record account",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "send",
			Usage:    "taker's token Y account to pay from",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "receive",
			Usage:    "taker's token X account to receive into",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "amount",
			Usage:    "amount of token X the taker expects to receive; the program rejects the exchange if the holding balance differs",
			Required: true,
		},
	},
	Action: exchangeAction,
}

func exchangeAction(ctx *cli.Context) error {
	rpc, err := getClient(ctx)
	if err != nil {
		return err
	}
	taker, err := loadKeypair(ctx.String("keypair"))
	if err != nil {
		return err
	}
	escrowKey, err := pubkeyFlag(ctx, "escrow")
	if err != nil {
		return err
	}
	send, err := pubkeyFlag(ctx, "send")
	if err != nil {
		return err
	}
	receive, err := pubkeyFlag(ctx, "receive")
	if err != nil {
		return err
	}

	record, err := rpc.GetEscrow(ctx.Context, escrowKey)
	if err != nil {
		return err
	}
	if !record.IsInitialized() {
		return errors.Errorf("escrow %s is not initialized", escrowKey)
	}

	amount := ctx.Uint64("amount")

	param := client.ExchangeParamFromRecord(rpc.ProgramID(), escrowKey, record)
	param.Taker = types.PubkeyFromCommon(taker.PublicKey)
	param.TakerSendAccount = send
	param.TakerReceiveAccount = receive
	param.TokenProgramID = rpc.TokenProgramID()
	param.Amount = amount

	ix, err := client.NewExchangeInstruction(param)
	if err != nil {
		return err
	}
	sig, err := rpc.SendInstructions(ctx.Context, taker, nil, ix)
	if err != nil {
		return err
	}
	printJSON(map[string]interface{}{
		"escrow":    escrowKey.String(),
		"amount":    amount,
		"signature": sig,
	})
	return nil
}
