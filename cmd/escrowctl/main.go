package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "escrowctl"
	app.Usage = "Command line interface for the token escrow program"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "rpc",
			Usage:   "solana JSON-RPC endpoint",
			Value:   "http://127.0.0.1:8899",
			EnvVars: []string{"ESCROW_RPC"},
		},
		&cli.StringFlag{
			Name:    "program",
			Usage:   "escrow program id",
			EnvVars: []string{"ESCROW_PROGRAM_ID"},
		},
		&cli.StringFlag{
			Name:  "token_program",
			Usage: "token program id, defaults to the SPL Token program",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "timeout of a single RPC request",
			Value: defaultTimeout,
		},
	}
	app.Commands = append(
		app.Commands,
		&pda,
		&show,
		&initEscrow,
		&exchange,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[escrowctl] %v\n", err)
	os.Exit(1)
}
