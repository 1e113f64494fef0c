package main

import (
	"escrow-sol/internal/escrow"

	"github.com/urfave/cli/v2"
)

var pda = cli.Command{
	Name:   "pda",
	Usage:  "derive the program authority that owns every holding account",
	Action: pdaAction,
}

func pdaAction(ctx *cli.Context) error {
	program, err := programID(ctx)
	if err != nil {
		return err
	}
	authority, bump, err := escrow.FindEscrowAuthority(program)
	if err != nil {
		return err
	}
	printJSON(map[string]interface{}{
		"program":   program.String(),
		"authority": authority.String(),
		"bump":      bump,
	})
	return nil
}
