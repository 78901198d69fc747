package host

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// ErrNotSigned is returned when a transaction part is still unauthorized.
var ErrNotSigned = errors.New("not signed")

// SpendFinalizer builds the P2PKH scriptSig of every transparent input from
// the device signatures.
type SpendFinalizer struct {
	txn  *tx.Transaction
	sigs *Signatures
}

func NewSpendFinalizer(txn *tx.Transaction, sigs *Signatures) *SpendFinalizer {
	return &SpendFinalizer{txn: txn, sigs: sigs}
}

// Finalize sets <sig || SIGHASH_ALL> <pubkey> as each input's scriptSig.
func (f *SpendFinalizer) Finalize() error {
	inputs := f.txn.Transparent.Inputs
	if len(f.sigs.Transparent) != len(inputs) {
		return fmt.Errorf("have %d transparent signatures for %d inputs", len(f.sigs.Transparent), len(inputs))
	}
	for i := range inputs {
		der := f.sigs.Transparent[i]
		if len(der) == 0 {
			return fmt.Errorf("transparent input %d: %w", i, ErrNotSigned)
		}
		inputs[i].ScriptSig = crypto.ScriptSig(der, tx.SighashAll, f.sigs.PubKey)
	}
	return nil
}

// TxExtractor serializes a finalized transaction.
type TxExtractor struct {
	txn *tx.Transaction
}

func NewTxExtractor(txn *tx.Transaction) *TxExtractor {
	return &TxExtractor{txn: txn}
}

// Extract returns the v5 encoding of the transaction and its txid. Binding
// signatures and proofs are serialized as they are.
func (e *TxExtractor) Extract() ([]byte, [32]byte, error) {
	if err := e.validate(); err != nil {
		return nil, [32]byte{}, err
	}
	return e.txn.MarshalV5(), crypto.TxID(e.txn), nil
}

func (e *TxExtractor) validate() error {
	var zero [tx.SignatureSize]byte
	for i, in := range e.txn.Transparent.Inputs {
		if len(in.ScriptSig) == 0 {
			return fmt.Errorf("transparent input %d: %w", i, ErrNotSigned)
		}
	}
	for i, sp := range e.txn.Sapling.Spends {
		if sp.SpendAuthSig == zero {
			return fmt.Errorf("sapling spend %d: %w", i, ErrNotSigned)
		}
	}
	for i, a := range e.txn.Orchard.Actions {
		if a.SpendAuthSig == zero {
			return fmt.Errorf("orchard action %d: %w", i, ErrNotSigned)
		}
	}
	return nil
}
