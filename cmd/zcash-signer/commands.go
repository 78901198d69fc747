package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/host"
	"github.com/suffix-labs/zcash-signer/pkg/keys"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
)

var commandREPL = &cli.Command{
	Name:  "repl",
	Usage: "exchange raw APDUs read as hex lines from stdin",
	Description: `
Each input line is one command APDU in hex; the response APDU is printed
in hex. Blank lines and lines starting with # are skipped. Fee and address
confirmations read their answer from the next input line.`,
	Action: func(ctx *cli.Context) error {
		in := bufio.NewReader(os.Stdin)
		_, d, err := openDevice(cfg, &promptApprover{in: in, out: os.Stderr}, false)
		if err != nil {
			return err
		}
		defer d.Close()
		return repl(in, os.Stdout, d.Exchange)
	},
}

func repl(in *bufio.Reader, out io.Writer, exchange func([]byte) []byte) error {
	for {
		line, err := in.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			raw, decErr := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
			if decErr != nil {
				fmt.Fprintf(out, "error: %v\n", decErr)
			} else {
				fmt.Fprintln(out, hex.EncodeToString(exchange(raw)))
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

var confirmFlag = &cli.BoolFlag{
	Name:  "confirm",
	Usage: "ask for confirmation of the displayed addresses",
}

var commandAddress = &cli.Command{
	Name:  "address",
	Usage: "print the account's addresses and viewing keys",
	Flags: []cli.Flag{confirmFlag},
	Action: func(ctx *cli.Context) error {
		approver := &promptApprover{in: bufio.NewReader(os.Stdin), out: os.Stderr}
		dev, d, err := openDevice(cfg, approver, true)
		if err != nil {
			return err
		}
		defer d.Close()

		pub, raw, err := dev.PublicKey(ctx.Bool(confirmFlag.Name))
		if err != nil {
			return err
		}
		pk, err := crypto.ParsePublicKey(pub[:])
		if err != nil {
			return err
		}
		prefix := crypto.MainnetP2PKHPrefix
		if cfg.CoinType == keys.CoinTypeTestnet {
			prefix = crypto.TestnetP2PKHPrefix
		}
		addr, err := sapling.ParsePaymentAddress(raw)
		if err != nil {
			return err
		}
		zaddr, err := addr.Encode()
		if err != nil {
			return err
		}
		fvk, err := dev.SaplingFVK()
		if err != nil {
			return err
		}
		ofvk, err := dev.OrchardFVK()
		if err != nil {
			return err
		}

		fmt.Printf("Account:        %d\n", cfg.Account)
		fmt.Printf("Transparent:    %s\n", pk.Address(prefix))
		fmt.Printf("Public key:     %x\n", pub)
		fmt.Printf("Sapling:        %s\n", zaddr)
		fmt.Printf("Sapling FVK:    %x\n", fvk)
		fmt.Printf("Orchard FVK:    %x\n", ofvk)
		return nil
	},
}

var commandSelfTest = &cli.Command{
	Name:  "selftest",
	Usage: "run the arithmetic self tests",
	Action: func(ctx *cli.Context) error {
		dev, d, err := openDevice(cfg, nil, false)
		if err != nil {
			return err
		}
		defer d.Close()

		v, err := dev.Version()
		if err != nil {
			return err
		}
		name, err := dev.AppName()
		if err != nil {
			return err
		}
		fmt.Printf("%s %d.%d.%d\n", name, v[0], v[1], v[2])

		results, err := dev.SelfTest()
		if err != nil {
			return err
		}
		labels := []string{"Orchard SpendAuthG", "Sapling G", "hash_to_field"}
		for i, r := range results {
			fmt.Printf("%-20s %x\n", labels[i]+":", r)
		}
		return nil
	},
}

var outFlag = &cli.StringFlag{
	Name:  "out",
	Usage: "write the raw transaction to this file instead of stdout",
}

var commandSign = &cli.Command{
	Name:      "sign",
	Usage:     "sign a YAML transaction document",
	ArgsUsage: "<tx.yaml>",
	Flags:     []cli.Flag{outFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("expected one transaction file")
		}
		f, err := os.Open(ctx.Args().First())
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := host.ParseDocument(f)
		if err != nil {
			return err
		}
		txn, err := doc.Build(cfg.ConsensusBranchID, rand.Reader)
		if err != nil {
			return err
		}

		approver := &promptApprover{in: bufio.NewReader(os.Stdin), out: os.Stderr}
		dev, d, err := openDevice(cfg, approver, true)
		if err != nil {
			return err
		}
		defer d.Close()

		sigs, err := host.NewSigner(dev).Sign(txn)
		if err != nil {
			return err
		}
		if err := host.NewSpendFinalizer(txn, sigs).Finalize(); err != nil {
			return err
		}
		raw, txid, err := host.NewTxExtractor(txn).Extract()
		if err != nil {
			return err
		}

		slices.Reverse(txid[:])
		fmt.Fprintf(os.Stderr, "txid: %x\n", txid)
		if path := ctx.String(outFlag.Name); path != "" {
			return os.WriteFile(path, []byte(hex.EncodeToString(raw)+"\n"), 0o644)
		}
		fmt.Println(hex.EncodeToString(raw))
		return nil
	},
}
