package main

import (
	"github.com/urfave/cli/v2"
)

var show = cli.Command{
	Name:  "show",
	Usage: "print the terms stored in an escrow record account",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "escrow",
			Usage:    "the escrow record account",
			Required: true,
		},
	},
	Action: showAction,
}

type recordView struct {
	Escrow             string `json:"escrow"`
	Initialized        bool   `json:"initialized"`
	Initializer        string `json:"initializer"`
	HoldingAccount     string `json:"holding_account"`
	HoldingAmount      uint64 `json:"holding_amount"`
	InitializerReceive string `json:"initializer_receive"`
	ExpectedAmount     uint64 `json:"expected_amount"`
}

func showAction(ctx *cli.Context) error {
	rpc, err := getClient(ctx)
	if err != nil {
		return err
	}
	addr, err := pubkeyFlag(ctx, "escrow")
	if err != nil {
		return err
	}

	record, err := rpc.GetEscrow(ctx.Context, addr)
	if err != nil {
		return err
	}
	view := recordView{
		Escrow:      addr.String(),
		Initialized: record.IsInitialized(),
	}
	if record.IsInitialized() {
		view.Initializer = record.InitializerPubkey.String()
		view.HoldingAccount = record.HoldingAccountPubkey.String()
		view.InitializerReceive = record.InitializerReceivePubkey.String()
		view.ExpectedAmount = record.ExpectedAmount
		view.HoldingAmount, err = rpc.GetTokenAmount(ctx.Context, record.HoldingAccountPubkey)
		if err != nil {
			return err
		}
	}
	printJSON(view)
	return nil
}
