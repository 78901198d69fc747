package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/zcash-signer/pkg/apdu"
	"github.com/suffix-labs/zcash-signer/pkg/host"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/zip321"
)

// promptApprover asks on the terminal, reading answers from in.
type promptApprover struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptApprover) ask(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (p *promptApprover) ConfirmFee(s signer.FeeSummary) bool {
	fmt.Fprintf(p.out, "Transparent outputs: %s ZEC\n", zip321.FormatAmount(s.TransparentOutputs))
	fmt.Fprintf(p.out, "Sapling outputs:     %s ZEC\n", zip321.FormatAmount(s.SaplingOutputs))
	fmt.Fprintf(p.out, "Orchard outputs:     %s ZEC\n", zip321.FormatAmount(s.OrchardOutputs))
	fmt.Fprintf(p.out, "Fee:                 %s ZEC\n", zip321.FormatAmount(uint64(s.Fee)))
	return p.ask("Approve transaction?")
}

func (p *promptApprover) ConfirmAddress(transparent, sapling string) bool {
	fmt.Fprintf(p.out, "Transparent: %s\nSapling:     %s\n", transparent, sapling)
	return p.ask("Addresses match?")
}

// autoApprover accepts everything and logs what it accepted.
type autoApprover struct{}

func (autoApprover) ConfirmFee(s signer.FeeSummary) bool {
	log.Warn("Fee approved automatically", "fee", s.Fee)
	return true
}

func (autoApprover) ConfirmAddress(transparent, sapling string) bool {
	log.Warn("Address approved automatically", "transparent", transparent, "sapling", sapling)
	return true
}

// openDevice starts a dispatcher for the configured wallet and returns a
// Device over it with the configured account loaded. With load unset the
// account is left to the caller.
func openDevice(c *config, approver signer.Approver, load bool) (*host.Device, *apdu.Dispatcher, error) {
	provider, err := c.provider()
	if err != nil {
		return nil, nil, err
	}
	info, err := c.appInfo()
	if err != nil {
		return nil, nil, err
	}
	if c.AutoApprove {
		approver = autoApprover{}
	}
	d := apdu.New(apdu.Config{
		ConsensusBranchID: c.ConsensusBranchID,
		App:               info,
		Provider:          provider,
		Approver:          approver,
		Logger:            log.New("module", "apdu"),
	})
	dev := host.NewDevice(host.Local{Dispatcher: d})
	if load {
		if err := dev.Initialize(c.Account); err != nil {
			d.Close()
			return nil, nil, err
		}
	}
	return dev, d, nil
}
