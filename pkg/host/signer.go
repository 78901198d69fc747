package host

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

var (
	// ErrForeignInput is returned for a transparent input locked to a key
	// other than the device's.
	ErrForeignInput = errors.New("transparent input is not spendable by the device")

	// ErrSighashMismatch means the device hashed a different transaction
	// than the one being signed.
	ErrSighashMismatch = errors.New("device sighash does not match the transaction")

	// ErrBadSignature is returned when a device signature fails to verify.
	ErrBadSignature = errors.New("device signature does not verify")
)

// Signatures holds the transparent signatures of a signed transaction, in
// input order. Shielded spend authorizations are written into the
// transaction directly.
type Signatures struct {
	PubKey      [33]byte
	Transparent [][]byte // DER, without the hash type byte
}

// Signer authorizes a transaction with the loaded device account.
//
// Sign runs one device session: it sends the header digest, every item in
// stage order and the digests the device cannot compute, waits for the fee
// to be confirmed and then requests one signature per transparent input,
// Sapling spend and Orchard action. The device's sighash is compared with
// the locally computed one before any signature is requested.
type Signer struct {
	dev *Device
	log log.Logger
}

// NewSigner returns a Signer using dev. The account must already be
// initialized on the device.
func NewSigner(dev *Device) *Signer {
	return &Signer{dev: dev, log: log.New("module", "host")}
}

type deviceKeys struct {
	pub       [33]byte
	script    []byte
	saplingAK jubjub.ExtendedPoint
	orchardAK pallas.Point
}

func (s *Signer) keys(txn *tx.Transaction) (*deviceKeys, error) {
	k := new(deviceKeys)
	pub, _, err := s.dev.PublicKey(false)
	if err != nil {
		return nil, err
	}
	pk, err := crypto.ParsePublicKey(pub[:])
	if err != nil {
		return nil, fmt.Errorf("device public key: %w", err)
	}
	k.pub = pub
	k.script = tx.TransparentOutputRecord{AddressType: tx.AddressTypeP2PKH, AddressHash: pk.Hash160()}.ScriptPubKey()

	if len(txn.Sapling.Spends) > 0 {
		fvk, err := s.dev.SaplingFVK()
		if err != nil {
			return nil, err
		}
		if k.saplingAK, err = jubjub.Decode([32]byte(fvk[:32])); err != nil {
			return nil, fmt.Errorf("sapling ak: %w", err)
		}
	}
	if len(txn.Orchard.Actions) > 0 {
		fvk, err := s.dev.OrchardFVK()
		if err != nil {
			return nil, err
		}
		if k.orchardAK, err = pallas.Decode([32]byte(fvk[:32])); err != nil {
			return nil, fmt.Errorf("orchard ak: %w", err)
		}
	}
	return k, nil
}

// claimInputs gives inputs without a locking script the device's P2PKH
// script and rejects inputs locked to anything else.
func claimInputs(inputs []tx.TransparentInput, script []byte) error {
	for i := range inputs {
		in := &inputs[i]
		if len(in.ScriptPubKey) == 0 {
			in.ScriptPubKey = bytes.Clone(script)
			continue
		}
		if !bytes.Equal(in.ScriptPubKey, script) {
			return fmt.Errorf("input %d: %w", i, ErrForeignInput)
		}
	}
	return nil
}

// Sign authorizes txn. It fills in rk and spend authorization signatures
// of the shielded parts and returns the transparent signatures.
func (s *Signer) Sign(txn *tx.Transaction) (sigs *Signatures, err error) {
	k, err := s.keys(txn)
	if err != nil {
		return nil, err
	}
	if err := claimInputs(txn.Transparent.Inputs, k.script); err != nil {
		return nil, err
	}

	mseed, err := s.dev.InitTx(crypto.HeaderDigest(&txn.Header))
	if err != nil {
		return nil, err
	}
	defer func() {
		if endErr := s.dev.EndTx(); endErr != nil && err == nil {
			err = endErr
		}
	}()

	saplingKeys := randomizedSapling(txn, k.saplingAK, mseed)
	orchardKeys := randomizedOrchard(txn, k.orchardAK, mseed)

	if err := s.send(txn); err != nil {
		return nil, err
	}

	sighash, err := s.dev.Sighash()
	if err != nil {
		return nil, err
	}
	if sighash != crypto.ShieldedSighash(txn) {
		return nil, ErrSighashMismatch
	}
	s.log.Debug("Sighash agreed", "sighash", fmt.Sprintf("%x", sighash))

	sigs = &Signatures{PubKey: k.pub}
	if sigs.Transparent, err = s.signTransparent(txn, k.pub); err != nil {
		return nil, err
	}
	for i, rk := range saplingKeys {
		sig, err := s.dev.SignSapling()
		if err != nil {
			return nil, err
		}
		if !sapling.Verify(rk, sighash[:], sapling.Signature(sig)) {
			return nil, fmt.Errorf("sapling spend %d: %w", i, ErrBadSignature)
		}
		txn.Sapling.Spends[i].SpendAuthSig = sig
	}
	for i, rk := range orchardKeys {
		sig, err := s.dev.SignOrchard()
		if err != nil {
			return nil, err
		}
		if !orchard.Verify(rk, sighash[:], orchard.Signature(sig)) {
			return nil, fmt.Errorf("orchard action %d: %w", i, ErrBadSignature)
		}
		txn.Orchard.Actions[i].SpendAuthSig = sig
	}
	s.log.Info("Transaction signed",
		"transparent", len(sigs.Transparent),
		"sapling", len(saplingKeys),
		"orchard", len(orchardKeys))
	return sigs, nil
}

// randomizedSapling sets rk on every Sapling spend, drawing randomizers in
// the order the device will.
func randomizedSapling(txn *tx.Transaction, ak jubjub.ExtendedPoint, mseed [32]byte) []jubjub.ExtendedPoint {
	alphas := signer.NewSaplingAlphas(mseed)
	rks := make([]jubjub.ExtendedPoint, len(txn.Sapling.Spends))
	for i := range txn.Sapling.Spends {
		rks[i] = sapling.RandomizeVerificationKey(ak, alphas.NextSapling())
		txn.Sapling.Spends[i].Rk = rks[i].Encode()
	}
	return rks
}

func randomizedOrchard(txn *tx.Transaction, ak pallas.Point, mseed [32]byte) []pallas.Point {
	alphas := signer.NewOrchardAlphas(mseed)
	rks := make([]pallas.Point, len(txn.Orchard.Actions))
	for i := range txn.Orchard.Actions {
		rks[i] = orchard.RandomizeVerificationKey(ak, alphas.NextOrchard())
		txn.Orchard.Actions[i].Rk = rks[i].Encode()
	}
	return rks
}

// send walks the device through every stage up to Sign.
func (s *Signer) send(txn *tx.Transaction) error {
	d := s.dev
	tb := &txn.Transparent
	for _, in := range tb.Inputs {
		if err := d.AddTransparentInput(in.Value); err != nil {
			return err
		}
	}
	if len(tb.Inputs) > 0 {
		err := d.SetTransparentProofs(tx.TransparentProofs{
			Prevouts:      crypto.PrevoutsDigest(tb.Inputs),
			ScriptPubKeys: crypto.ScriptPubKeysDigest(tb.Inputs),
			Sequence:      crypto.SequenceDigest(tb.Inputs),
		})
		if err != nil {
			return err
		}
	}

	if err := d.ChangeStage(signer.TransparentOut); err != nil {
		return err
	}
	for i, out := range tb.Outputs {
		r, err := tx.TransparentOutputRecordFromOutput(out)
		if err != nil {
			return fmt.Errorf("transparent output %d: %w", i, err)
		}
		if err := d.AddTransparentOutput(r); err != nil {
			return err
		}
	}

	sb := &txn.Sapling
	if err := d.ChangeStage(signer.SaplingOut); err != nil {
		return err
	}
	for _, out := range sb.Outputs {
		if err := d.AddSaplingOutput(tx.NewSaplingOutputRecord(out)); err != nil {
			return err
		}
	}
	if err := d.ChangeStage(signer.SaplingNet); err != nil {
		return err
	}
	if len(sb.Spends) > 0 || len(sb.Outputs) > 0 {
		if err := d.SetSaplingNet(sb.ValueBalance); err != nil {
			return err
		}
		err := d.SetSaplingProofs(tx.SaplingProofs{
			Spends:            crypto.SaplingSpendsDigest(sb),
			OutputsMemos:      crypto.SaplingOutputsMemosDigest(sb.Outputs),
			OutputsNoncompact: crypto.SaplingOutputsNoncompactDigest(sb.Outputs),
		})
		if err != nil {
			return err
		}
	}

	ob := &txn.Orchard
	if err := d.ChangeStage(signer.OrchardOut); err != nil {
		return err
	}
	for _, a := range ob.Actions {
		if err := d.AddOrchardAction(tx.NewOrchardActionRecord(a)); err != nil {
			return err
		}
	}
	if err := d.ChangeStage(signer.OrchardNet); err != nil {
		return err
	}
	if len(ob.Actions) > 0 {
		if err := d.SetOrchardNet(ob.ValueBalance); err != nil {
			return err
		}
		err := d.SetOrchardProofs(tx.OrchardProofs{
			ActionsMemos:      crypto.OrchardActionsMemosDigest(ob.Actions),
			ActionsNoncompact: crypto.OrchardActionsNoncompactDigest(ob.Actions),
			Anchor:            ob.Anchor,
		})
		if err != nil {
			return err
		}
	}

	if err := d.ChangeStage(signer.Fee); err != nil {
		return err
	}
	if err := d.ConfirmFee(); err != nil {
		return err
	}
	return d.ChangeStage(signer.Sign)
}

func (s *Signer) signTransparent(txn *tx.Transaction, pub [33]byte) ([][]byte, error) {
	if len(txn.Transparent.Inputs) == 0 {
		return nil, nil
	}
	pk, err := crypto.ParsePublicKey(pub[:])
	if err != nil {
		return nil, err
	}
	sigs := make([][]byte, len(txn.Transparent.Inputs))
	for i := range txn.Transparent.Inputs {
		der, err := s.dev.SignTransparent(crypto.TxInDigest(&txn.Transparent.Inputs[i]))
		if err != nil {
			return nil, err
		}
		digest, err := crypto.TransparentSighash(txn, i, tx.SighashAll)
		if err != nil {
			return nil, err
		}
		if !crypto.VerifySignature(pk, digest, der) {
			return nil, fmt.Errorf("transparent input %d: %w", i, ErrBadSignature)
		}
		sigs[i] = der
	}
	return sigs, nil
}
