package host

import (
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
	"github.com/suffix-labs/zcash-signer/pkg/zip321"
)

// HexBytes is a YAML scalar holding hex, with or without a 0x prefix.
type HexBytes []byte

func (h *HexBytes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a hex string", value.Line)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(value.Value, "0x"))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*h = b
	return nil
}

func (h HexBytes) MarshalYAML() (any, error) {
	return hex.EncodeToString(h), nil
}

// Document is the YAML description of a transaction to sign.
//
//	branch_id: 0xC2D6D0B4
//	expiry_height: 2500000
//	transparent_inputs:
//	  - txid: 6f1c...     # display order
//	    index: 0
//	    value: 20000
//	transparent_outputs:
//	  - address: t1...
//	    value: 15000
//	request: zcash:zs1...?amount=0.0001
//
// Transparent inputs without script_pubkey are taken to be locked to the
// device key. Payments of request are appended to the outputs, t-addresses
// as transparent outputs and z-addresses as Sapling outputs.
type Document struct {
	BranchID     uint32 `yaml:"branch_id"`
	ExpiryHeight uint32 `yaml:"expiry_height"`
	LockTime     uint32 `yaml:"lock_time"`

	TransparentInputs  []InputDoc  `yaml:"transparent_inputs"`
	TransparentOutputs []OutputDoc `yaml:"transparent_outputs"`

	SaplingAnchor  HexBytes           `yaml:"sapling_anchor"`
	SaplingSpends  []SaplingSpendDoc  `yaml:"sapling_spends"`
	SaplingOutputs []SaplingOutputDoc `yaml:"sapling_outputs"`

	OrchardAnchor  HexBytes           `yaml:"orchard_anchor"`
	OrchardActions []OrchardActionDoc `yaml:"orchard_actions"`

	Request string `yaml:"request"` // ZIP 321 URI
}

type InputDoc struct {
	TxID         HexBytes `yaml:"txid"`
	Index        uint32   `yaml:"index"`
	Value        uint64   `yaml:"value"`
	ScriptPubKey HexBytes `yaml:"script_pubkey"`
	Sequence     *uint32  `yaml:"sequence"`
}

type OutputDoc struct {
	Address string `yaml:"address"`
	Value   uint64 `yaml:"value"`
}

type SaplingSpendDoc struct {
	Nullifier HexBytes `yaml:"nullifier"`
	Cv        HexBytes `yaml:"cv"`
	Value     uint64   `yaml:"value"`
}

type SaplingOutputDoc struct {
	Address string `yaml:"address"` // zs1...
	Value   uint64 `yaml:"value"`
	Memo    string `yaml:"memo"`
}

type OrchardActionDoc struct {
	Nullifier HexBytes `yaml:"nullifier"`
	Spent     uint64   `yaml:"spent"`
	Recipient HexBytes `yaml:"recipient"` // raw d || pk_d
	Value     uint64   `yaml:"value"`
	Memo      string   `yaml:"memo"`
}

func invalidDocument(field string, err error) error {
	return &tx.ParseError{Code: tx.ErrInvalidDocument, Record: field, Message: "invalid value", Cause: err}
}

// ParseDocument decodes a YAML transaction document. Unknown keys are
// rejected.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &tx.ParseError{Code: tx.ErrInvalidDocument, Record: "document", Message: "malformed YAML", Cause: err}
	}
	return &doc, nil
}

func fixed32(field string, b HexBytes) ([32]byte, error) {
	if len(b) != 32 {
		return [32]byte{}, invalidDocument(field, fmt.Errorf("got %d bytes, want 32", len(b)))
	}
	return [32]byte(b), nil
}

// Build constructs the unsigned transaction. branchID is used when the
// document does not name one.
func (doc *Document) Build(branchID uint32, rand io.Reader) (*tx.Transaction, error) {
	if doc.BranchID != 0 {
		branchID = doc.BranchID
	}
	c := NewConstructor(branchID, doc.ExpiryHeight, doc.LockTime, rand)

	for i, in := range doc.TransparentInputs {
		field := fmt.Sprintf("transparent_inputs[%d]", i)
		txid, err := fixed32(field+".txid", in.TxID)
		if err != nil {
			return nil, err
		}
		slices.Reverse(txid[:])
		seq := DefaultSequence
		if in.Sequence != nil {
			seq = *in.Sequence
		}
		if err := c.AddTransparentInput(txid, in.Index, in.Value, in.ScriptPubKey, seq); err != nil {
			return nil, invalidDocument(field, err)
		}
	}
	for i, out := range doc.TransparentOutputs {
		if err := c.AddTransparentOutput(out.Address, out.Value); err != nil {
			return nil, invalidDocument(fmt.Sprintf("transparent_outputs[%d]", i), err)
		}
	}

	if len(doc.SaplingAnchor) > 0 {
		anchor, err := fixed32("sapling_anchor", doc.SaplingAnchor)
		if err != nil {
			return nil, err
		}
		c.SetSaplingAnchor(anchor)
	}
	for i, sp := range doc.SaplingSpends {
		field := fmt.Sprintf("sapling_spends[%d]", i)
		nf, err := fixed32(field+".nullifier", sp.Nullifier)
		if err != nil {
			return nil, err
		}
		var cv [32]byte
		if len(sp.Cv) > 0 {
			if cv, err = fixed32(field+".cv", sp.Cv); err != nil {
				return nil, err
			}
		}
		if err := c.AddSaplingSpend(nf, cv, sp.Value); err != nil {
			return nil, invalidDocument(field, err)
		}
	}
	for i, out := range doc.SaplingOutputs {
		field := fmt.Sprintf("sapling_outputs[%d]", i)
		memo, err := TextMemo(out.Memo)
		if err != nil {
			return nil, invalidDocument(field+".memo", err)
		}
		if err := addSaplingOutput(c, out.Address, out.Value, memo); err != nil {
			return nil, invalidDocument(field, err)
		}
	}

	if len(doc.OrchardAnchor) > 0 {
		anchor, err := fixed32("orchard_anchor", doc.OrchardAnchor)
		if err != nil {
			return nil, err
		}
		c.SetOrchardAnchor(anchor)
	}
	for i, a := range doc.OrchardActions {
		field := fmt.Sprintf("orchard_actions[%d]", i)
		nf, err := fixed32(field+".nullifier", a.Nullifier)
		if err != nil {
			return nil, err
		}
		if len(a.Recipient) != tx.AddressSize {
			return nil, invalidDocument(field+".recipient", fmt.Errorf("got %d bytes, want %d", len(a.Recipient), tx.AddressSize))
		}
		to, err := orchard.ParseAddress([tx.AddressSize]byte(a.Recipient))
		if err != nil {
			return nil, invalidDocument(field+".recipient", err)
		}
		memo, err := TextMemo(a.Memo)
		if err != nil {
			return nil, invalidDocument(field+".memo", err)
		}
		if err := c.AddOrchardAction(nf, a.Spent, to, a.Value, memo); err != nil {
			return nil, invalidDocument(field, err)
		}
	}

	if doc.Request != "" {
		if err := addRequest(c, doc.Request); err != nil {
			return nil, err
		}
	}

	txn, err := c.Finish()
	if err != nil {
		return nil, invalidDocument("document", err)
	}
	return txn, nil
}

func addSaplingOutput(c *Constructor, address string, value uint64, memo Memo) error {
	to, err := sapling.DecodePaymentAddress(address)
	if err != nil {
		return err
	}
	return c.AddSaplingOutput(to, value, memo)
}

func addRequest(c *Constructor, uri string) error {
	req, err := zip321.Parse(uri)
	if err != nil {
		return invalidDocument("request", err)
	}
	for i, p := range req.Payments {
		if p.IsTransparent() {
			err = c.AddTransparentOutput(p.Address, p.Amount)
		} else {
			var memo Memo
			if memo, err = RawMemo(p.Memo); err == nil {
				err = addSaplingOutput(c, p.Address, p.Amount, memo)
			}
		}
		if err != nil {
			return invalidDocument(fmt.Sprintf("request payment %d", i), err)
		}
	}
	return nil
}
