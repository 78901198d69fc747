package host

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// Memo is a ZIP 302 memo field.
type Memo [crypto.MemoSize]byte

// NoMemo is the memo of a note that carries none.
var NoMemo = Memo{0xF6}

// TextMemo encodes s as a UTF-8 text memo. The empty string gives NoMemo.
func TextMemo(s string) (Memo, error) {
	if !utf8.ValidString(s) {
		return Memo{}, errors.New("memo is not valid UTF-8")
	}
	return RawMemo([]byte(s))
}

// RawMemo zero-pads b to a memo field. Empty b gives NoMemo.
func RawMemo(b []byte) (Memo, error) {
	if len(b) == 0 {
		return NoMemo, nil
	}
	if len(b) > crypto.MemoSize {
		return Memo{}, fmt.Errorf("memo is %d bytes, at most %d allowed", len(b), crypto.MemoSize)
	}
	var m Memo
	copy(m[:], b)
	return m, nil
}

// DefaultSequence is the sequence number of inputs that do not use it.
const DefaultSequence uint32 = 0xFFFFFFFF

// Constructor builds the unsigned transaction the device will authorize.
//
// Shielded outputs are given as note plaintexts; the constructor computes
// their commitments, ephemeral keys and note ciphertexts. Value commitments,
// out_ciphertext and proofs belong to a prover and are left zero.
type Constructor struct {
	txn  *tx.Transaction
	rand io.Reader

	saplingSpent uint64
	saplingOut   uint64
	orchardSpent uint64
	orchardOut   uint64
}

// NewConstructor starts a v5 transaction for the consensus branch branchID.
// rand supplies note seeds.
func NewConstructor(branchID, expiryHeight, lockTime uint32, rand io.Reader) *Constructor {
	return &Constructor{
		txn: &tx.Transaction{
			Header: tx.Header{
				Version:           tx.V5TxVersion,
				VersionGroupID:    tx.V5VersionGroupID,
				ConsensusBranchID: branchID,
				LockTime:          lockTime,
				ExpiryHeight:      expiryHeight,
			},
			Orchard: tx.OrchardBundle{Flags: tx.OrchardFlagsEnabled},
		},
		rand: rand,
	}
}

func checkValue(v uint64) error {
	if v > tx.MaxMoney {
		return fmt.Errorf("value %d exceeds the money supply", v)
	}
	return nil
}

// AddTransparentInput adds a coin to spend. An empty scriptPubKey is
// replaced by the device's P2PKH script when signing.
func (c *Constructor) AddTransparentInput(prevoutTxID [32]byte, prevoutIndex uint32, value uint64, scriptPubKey []byte, sequence uint32) error {
	if err := checkValue(value); err != nil {
		return err
	}
	c.txn.Transparent.Inputs = append(c.txn.Transparent.Inputs, tx.TransparentInput{
		PrevoutTxID:  prevoutTxID,
		PrevoutIndex: prevoutIndex,
		Value:        value,
		ScriptPubKey: scriptPubKey,
		Sequence:     sequence,
	})
	return nil
}

// AddTransparentOutput pays value to a base58check t-address.
func (c *Constructor) AddTransparentOutput(address string, value uint64) error {
	if err := checkValue(value); err != nil {
		return err
	}
	prefix, hash, err := crypto.DecodeTransparentAddress(address)
	if err != nil {
		return fmt.Errorf("transparent address %q: %w", address, err)
	}
	rec := tx.TransparentOutputRecord{Value: value, AddressHash: hash}
	switch prefix {
	case crypto.MainnetP2PKHPrefix, crypto.TestnetP2PKHPrefix:
		rec.AddressType = tx.AddressTypeP2PKH
	case crypto.MainnetP2SHPrefix, crypto.TestnetP2SHPrefix:
		rec.AddressType = tx.AddressTypeP2SH
	default:
		return fmt.Errorf("transparent address %q: unknown prefix %x", address, prefix)
	}
	c.txn.Transparent.Outputs = append(c.txn.Transparent.Outputs, tx.TransparentOutput{
		Value:        value,
		ScriptPubKey: rec.ScriptPubKey(),
	})
	return nil
}

// AddSaplingSpend adds a spend of a note worth value. Its rk is set by the
// Signer once the device has chosen the randomizer.
func (c *Constructor) AddSaplingSpend(nullifier, cv [32]byte, value uint64) error {
	if err := checkValue(value); err != nil {
		return err
	}
	c.txn.Sapling.Spends = append(c.txn.Sapling.Spends, tx.SaplingSpend{Cv: cv, Nullifier: nullifier})
	c.saplingSpent += value
	return nil
}

func (c *Constructor) newRseed() ([32]byte, error) {
	var rseed [32]byte
	if _, err := io.ReadFull(c.rand, rseed[:]); err != nil {
		return rseed, fmt.Errorf("rseed: %w", err)
	}
	return rseed, nil
}

// AddSaplingOutput creates a note of value for to.
func (c *Constructor) AddSaplingOutput(to sapling.PaymentAddress, value uint64, memo Memo) error {
	if err := checkValue(value); err != nil {
		return err
	}
	rseed, err := c.newRseed()
	if err != nil {
		return err
	}
	note := sapling.Note{Recipient: to, Value: value, Rseed: rseed}
	out, enc, err := note.EncryptWithMemo(memo)
	if err != nil {
		return fmt.Errorf("sapling output: %w", err)
	}
	o := tx.SaplingOutput{
		Cmu:          out.Cmu,
		EphemeralKey: out.Epk,
		Recipient:    to.Bytes(),
		Value:        value,
		Rseed:        rseed,
	}
	copy(o.EncCiphertext[:], enc)
	c.txn.Sapling.Outputs = append(c.txn.Sapling.Outputs, o)
	c.saplingOut += value
	return nil
}

func (c *Constructor) SetSaplingAnchor(anchor [32]byte) { c.txn.Sapling.Anchor = anchor }

// AddOrchardAction spends the note with nullifier, worth spent, and creates
// a note of value for to.
func (c *Constructor) AddOrchardAction(nullifier [32]byte, spent uint64, to orchard.Address, value uint64, memo Memo) error {
	if err := checkValue(spent); err != nil {
		return err
	}
	if err := checkValue(value); err != nil {
		return err
	}
	rseed, err := c.newRseed()
	if err != nil {
		return err
	}
	note := orchard.Note{Recipient: to, Value: value, Rho: nullifier, Rseed: rseed}
	out, enc, err := note.EncryptWithMemo(memo)
	if err != nil {
		return fmt.Errorf("orchard action: %w", err)
	}
	a := tx.OrchardAction{
		Nullifier:    nullifier,
		Cmx:          out.Cmx,
		EphemeralKey: out.Epk,
		Recipient:    to.Bytes(),
		Value:        value,
		Rseed:        rseed,
	}
	copy(a.EncCiphertext[:], enc)
	c.txn.Orchard.Actions = append(c.txn.Orchard.Actions, a)
	c.orchardSpent += spent
	c.orchardOut += value
	return nil
}

func (c *Constructor) SetOrchardAnchor(anchor [32]byte) { c.txn.Orchard.Anchor = anchor }

// ErrNegativeFee is returned by Finish when outputs exceed inputs.
var ErrNegativeFee = errors.New("outputs exceed inputs")

// Finish sets the value balances and returns the transaction.
func (c *Constructor) Finish() (*tx.Transaction, error) {
	c.txn.Sapling.ValueBalance = int64(c.saplingSpent) - int64(c.saplingOut)
	c.txn.Orchard.ValueBalance = int64(c.orchardSpent) - int64(c.orchardOut)
	if len(c.txn.Orchard.Actions) == 0 {
		c.txn.Orchard.Flags = 0
	}
	if fee := c.txn.Fee(); fee < 0 {
		return nil, fmt.Errorf("%w by %d zatoshis", ErrNegativeFee, -fee)
	}
	return c.txn, nil
}
