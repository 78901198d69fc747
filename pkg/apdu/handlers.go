package apdu

import (
	"encoding/binary"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

func (d *Dispatcher) getVersion(Command) ([]byte, error) {
	return []byte{d.app.Major, d.app.Minor, d.app.Patch}, nil
}

func (d *Dispatcher) getAppName(Command) ([]byte, error) {
	return []byte(d.app.Name), nil
}

// initialize replaces the loaded account with account P1. Any transaction
// in progress is discarded.
func (d *Dispatcher) initialize(cmd Command) ([]byte, error) {
	d.teardown()
	if d.provider == nil {
		return nil, signer.ErrNoAccount
	}
	acct, err := signer.LoadAccount(d.provider, cmd.P1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", signer.ErrNoAccount, err)
	}
	d.account = acct
	d.log.Info("Account initialized", "account", cmd.P1)
	return nil, nil
}

func (d *Dispatcher) getFVK(Command) ([]byte, error) {
	acct, err := d.requireAccount()
	if err != nil {
		return nil, err
	}
	fvk := acct.SaplingFVK()
	return fvk[:], nil
}

func (d *Dispatcher) getOFVK(Command) ([]byte, error) {
	acct, err := d.requireAccount()
	if err != nil {
		return nil, err
	}
	fvk := acct.OrchardFVK()
	return fvk[:], nil
}

// getPubkey returns the transparent public key and the default Sapling
// address. With P1 = 1 both are shown in their mainnet encodings and the
// user must confirm them.
func (d *Dispatcher) getPubkey(cmd Command) ([]byte, error) {
	acct, err := d.requireAccount()
	if err != nil {
		return nil, err
	}
	pub := acct.TransparentPubKey()
	addr := acct.SaplingAddress().Bytes()

	if cmd.P1 == 1 {
		zaddr, err := acct.SaplingAddress().Encode()
		if err != nil {
			return nil, err
		}
		taddr := acct.TransparentAddress(displayPrefix)
		if d.approver == nil || !d.approver.ConfirmAddress(taddr, zaddr) {
			return nil, signer.ErrRejected
		}
	}

	out := make([]byte, 0, len(pub)+len(addr))
	out = append(out, pub[:]...)
	return append(out, addr[:]...), nil
}

func (d *Dispatcher) getProofgenKey(Command) ([]byte, error) {
	acct, err := d.requireAccount()
	if err != nil {
		return nil, err
	}
	pgk := acct.ProofGenerationKey()
	return pgk[:], nil
}

func (d *Dispatcher) initTx(cmd Command) ([]byte, error) {
	mseed, err := d.session.Begin(d.account, [32]byte(cmd.Data))
	if err != nil {
		return nil, err
	}
	return mseed[:], nil
}

func (d *Dispatcher) changeStage(cmd Command) ([]byte, error) {
	return nil, d.session.ChangeStage(signer.Stage(cmd.P1))
}

func (d *Dispatcher) setTransparentProofs(cmd Command) ([]byte, error) {
	p, err := tx.ParseTransparentProofs(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.SetTransparentProofs(p)
}

func (d *Dispatcher) setSaplingProofs(cmd Command) ([]byte, error) {
	p, err := tx.ParseSaplingProofs(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.SetSaplingProofs(p)
}

func (d *Dispatcher) setOrchardProofs(cmd Command) ([]byte, error) {
	p, err := tx.ParseOrchardProofs(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.SetOrchardProofs(p)
}

func (d *Dispatcher) addTransparentInput(cmd Command) ([]byte, error) {
	amount, err := tx.ParseAmount(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.AddTransparentInput(amount)
}

func (d *Dispatcher) addTransparentOutput(cmd Command) ([]byte, error) {
	r, err := tx.ParseTransparentOutputRecord(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.AddTransparentOutput(r)
}

func (d *Dispatcher) addSaplingOutput(cmd Command) ([]byte, error) {
	r, err := tx.ParseSaplingOutputRecord(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.AddSaplingOutput(r)
}

func (d *Dispatcher) setSaplingNet(cmd Command) ([]byte, error) {
	v, err := tx.ParseNet(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.SetSaplingNet(v)
}

func (d *Dispatcher) addOrchardAction(cmd Command) ([]byte, error) {
	r, err := tx.ParseOrchardActionRecord(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.AddOrchardAction(r)
}

func (d *Dispatcher) setOrchardNet(cmd Command) ([]byte, error) {
	v, err := tx.ParseNet(cmd.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.session.SetOrchardNet(v)
}

func (d *Dispatcher) confirmFee(Command) ([]byte, error) {
	summary, err := d.session.ConfirmFee()
	if err != nil {
		return nil, err
	}
	d.log.Info("Fee confirmed", "fee", summary.Fee)
	return nil, nil
}

func (d *Dispatcher) getSighash(Command) ([]byte, error) {
	h, err := d.session.Sighash()
	if err != nil {
		return nil, err
	}
	return h[:], nil
}

func (d *Dispatcher) signTransparent(cmd Command) ([]byte, error) {
	return d.session.SignTransparent([32]byte(cmd.Data))
}

func (d *Dispatcher) signSapling(Command) ([]byte, error) {
	sig, err := d.session.SignSapling()
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

func (d *Dispatcher) signOrchard(Command) ([]byte, error) {
	sig, err := d.session.SignOrchard()
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

func (d *Dispatcher) endTx(Command) ([]byte, error) {
	d.session.End()
	return nil, nil
}

// testCmu computes the note commitment of address || value || rseed.
func (d *Dispatcher) testCmu(cmd Command) ([]byte, error) {
	addr, err := sapling.ParsePaymentAddress([tx.AddressSize]byte(cmd.Data[:tx.AddressSize]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidData, err)
	}
	rest := cmd.Data[tx.AddressSize:]
	note := sapling.Note{
		Recipient: addr,
		Value:     binary.LittleEndian.Uint64(rest[:tx.AmountSize]),
		Rseed:     [32]byte(rest[tx.AmountSize:]),
	}
	cmu, err := note.Cmu()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidData, err)
	}
	return cmu[:], nil
}

// testJubjubHash returns repr_J of the diversify hash of an 11-byte
// diversifier.
func (d *Dispatcher) testJubjubHash(cmd Command) ([]byte, error) {
	gd, err := sapling.DiversifyHash(sapling.Diversifier(cmd.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidData, err)
	}
	enc := gd.Encode()
	return enc[:], nil
}

// testPedersenHash returns MerkleCRH(layer, left, right).
func (d *Dispatcher) testPedersenHash(cmd Command) ([]byte, error) {
	h, err := sapling.MerkleHash(cmd.Data[0], [32]byte(cmd.Data[1:33]), [32]byte(cmd.Data[33:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidData, err)
	}
	return h[:], nil
}

// TEST_MATH selectors.
const (
	mathOrchardSpendAuthG byte = iota // repr_P(HashToCurve("z.cash:Orchard", "G"))
	mathSaplingG                      // repr_J(FindGroupHash("Zcash_G_", ""))
	mathHashToField                   // HashToField("z.cash:test", "abc") as two big-endian elements

	testMathSelectors
)

func (d *Dispatcher) testMath(cmd Command) ([]byte, error) {
	switch cmd.P1 {
	case mathOrchardSpendAuthG:
		p, err := pallas.HashToCurve([]byte("z.cash:Orchard"), []byte("G"))
		if err != nil {
			return nil, err
		}
		enc := p.Encode()
		return enc[:], nil
	case mathSaplingG:
		p, err := jubjub.FindGroupHash([]byte(sapling.SpendAuthPersonalization), nil)
		if err != nil {
			return nil, err
		}
		enc := p.Encode()
		return enc[:], nil
	default:
		f0, f1, err := pallas.HashToField([]byte("z.cash:test"), []byte("abc"))
		if err != nil {
			return nil, err
		}
		b0, b1 := f0.Bytes(), f1.Bytes()
		return append(b0[:], b1[:]...), nil
	}
}
