// zcash-signer runs the Zcash signing application in-process.
//
// The signer is reached the same way a hardware wallet is, through command
// APDUs. Keys come from a BIP 39 mnemonic in the config file or flags; this
// is a development setup, the mnemonic lives in memory.
//
// Example usage:
//
//	# Talk raw APDUs, one hex line per command
//	zcash-signer --config signer.yaml repl
//
//	# Show the account's addresses and ask for confirmation
//	zcash-signer --config signer.yaml address --confirm
//
//	# Sign a YAML transaction and print the raw transaction
//	zcash-signer --config signer.yaml sign tx.yaml
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// cfg is loaded before any command runs.
var cfg *config

var app = &cli.App{
	Name:  "zcash-signer",
	Usage: "Zcash transaction signer speaking the Ledger APDU protocol",
	Flags: []cli.Flag{
		configFlag,
		logLevelFlag,
		mnemonicFlag,
		accountFlag,
		autoApproveFlag,
	},
	Before: func(ctx *cli.Context) error {
		var err error
		if cfg, err = loadConfig(ctx); err != nil {
			return err
		}
		return setupLogging(cfg.LogLevel)
	},
	Commands: []*cli.Command{
		commandREPL,
		commandAddress,
		commandSelfTest,
		commandSign,
	},
}

// Commonly used command line flags.
var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level: trace, debug, info, warn, error or crit",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "BIP 39 mnemonic of the wallet",
		EnvVars: []string{"ZCASH_SIGNER_MNEMONIC"},
	}
	accountFlag = &cli.UintFlag{
		Name:  "account",
		Usage: "ZIP 32 account index",
	}
	autoApproveFlag = &cli.BoolFlag{
		Name:  "auto-approve",
		Usage: "accept every fee and address confirmation without asking",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
