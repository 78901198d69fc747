package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wire sizes of the per-item records.
const (
	AmountSize                  = 8
	TransparentOutputRecordSize = 8 + 1 + 20
	SaplingOutputRecordSize     = AddressSize + 8 + 32 + CompactNoteSize + 32
	OrchardActionRecordSize     = 32 + AddressSize + 8 + 32 + CompactNoteSize + 32
	ProofBundleSize             = 3 * 32
)

// Transparent address types carried in TransparentOutputRecord.
const (
	AddressTypeP2PKH uint8 = 0x00
	AddressTypeP2SH  uint8 = 0x01
)

func checkLength(record string, data []byte, want int) error {
	if len(data) != want {
		return &ParseError{
			Code:    ErrRecordLength,
			Record:  record,
			Message: fmt.Sprintf("got %d bytes, want %d", len(data), want),
		}
	}
	return nil
}

// ParseAmount decodes an unsigned little-endian 64-bit amount.
func ParseAmount(data []byte) (uint64, error) {
	if err := checkLength("amount", data, AmountSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// ParseNet decodes a signed little-endian 64-bit value balance.
func ParseNet(data []byte) (int64, error) {
	v, err := ParseAmount(data)
	return int64(v), err
}

// AmountBytes encodes v as 8 little-endian bytes.
func AmountBytes(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// TransparentOutputRecord is amount || address type || hash160.
type TransparentOutputRecord struct {
	Value       uint64
	AddressType uint8
	AddressHash [20]byte
}

func ParseTransparentOutputRecord(data []byte) (TransparentOutputRecord, error) {
	if err := checkLength("transparent output", data, TransparentOutputRecordSize); err != nil {
		return TransparentOutputRecord{}, err
	}
	r := TransparentOutputRecord{
		Value:       binary.LittleEndian.Uint64(data[:8]),
		AddressType: data[8],
	}
	if r.AddressType != AddressTypeP2PKH && r.AddressType != AddressTypeP2SH {
		return TransparentOutputRecord{}, &ParseError{
			Code:    ErrInvalidField,
			Record:  "transparent output",
			Message: fmt.Sprintf("unknown address type %#x", r.AddressType),
		}
	}
	copy(r.AddressHash[:], data[9:])
	return r, nil
}

func (r TransparentOutputRecord) Bytes() []byte {
	out := make([]byte, 0, TransparentOutputRecordSize)
	out = binary.LittleEndian.AppendUint64(out, r.Value)
	out = append(out, r.AddressType)
	return append(out, r.AddressHash[:]...)
}

// ScriptPubKey returns the standard locking script for the record's address.
func (r TransparentOutputRecord) ScriptPubKey() []byte {
	if r.AddressType == AddressTypeP2SH {
		script := []byte{0xa9, 0x14}
		script = append(script, r.AddressHash[:]...)
		return append(script, 0x87)
	}
	script := []byte{0x76, 0xa9, 0x14}
	script = append(script, r.AddressHash[:]...)
	return append(script, 0x88, 0xac)
}

// TransparentOutputRecordFromOutput recognizes P2PKH and P2SH scripts.
func TransparentOutputRecordFromOutput(out TransparentOutput) (TransparentOutputRecord, error) {
	s := out.ScriptPubKey
	r := TransparentOutputRecord{Value: out.Value}
	switch {
	case len(s) == 25 && bytes.HasPrefix(s, []byte{0x76, 0xa9, 0x14}) && bytes.HasSuffix(s, []byte{0x88, 0xac}):
		r.AddressType = AddressTypeP2PKH
		copy(r.AddressHash[:], s[3:23])
	case len(s) == 23 && bytes.HasPrefix(s, []byte{0xa9, 0x14}) && s[22] == 0x87:
		r.AddressType = AddressTypeP2SH
		copy(r.AddressHash[:], s[2:22])
	default:
		return TransparentOutputRecord{}, &ParseError{
			Code:    ErrUnsupported,
			Record:  "transparent output",
			Message: fmt.Sprintf("script %x is neither P2PKH nor P2SH", s),
		}
	}
	return r, nil
}

// SaplingOutputRecord is address || value || epk || enc[:52] || rseed.
type SaplingOutputRecord struct {
	Address    [AddressSize]byte
	Value      uint64
	Epk        [32]byte
	Ciphertext [CompactNoteSize]byte
	Rseed      [32]byte
}

func ParseSaplingOutputRecord(data []byte) (SaplingOutputRecord, error) {
	if err := checkLength("sapling output", data, SaplingOutputRecordSize); err != nil {
		return SaplingOutputRecord{}, err
	}
	var r SaplingOutputRecord
	n := copy(r.Address[:], data)
	r.Value = binary.LittleEndian.Uint64(data[n : n+8])
	n += 8
	n += copy(r.Epk[:], data[n:])
	n += copy(r.Ciphertext[:], data[n:])
	copy(r.Rseed[:], data[n:])
	return r, nil
}

func (r SaplingOutputRecord) Bytes() []byte {
	out := make([]byte, 0, SaplingOutputRecordSize)
	out = append(out, r.Address[:]...)
	out = binary.LittleEndian.AppendUint64(out, r.Value)
	out = append(out, r.Epk[:]...)
	out = append(out, r.Ciphertext[:]...)
	return append(out, r.Rseed[:]...)
}

// NewSaplingOutputRecord extracts the record of a Sapling output.
func NewSaplingOutputRecord(o SaplingOutput) SaplingOutputRecord {
	r := SaplingOutputRecord{Address: o.Recipient, Value: o.Value, Epk: o.EphemeralKey, Rseed: o.Rseed}
	copy(r.Ciphertext[:], o.EncCiphertext[:CompactNoteSize])
	return r
}

// OrchardActionRecord is nf || address || value || epk || enc[:52] || rseed.
type OrchardActionRecord struct {
	Nullifier  [32]byte
	Address    [AddressSize]byte
	Value      uint64
	Epk        [32]byte
	Ciphertext [CompactNoteSize]byte
	Rseed      [32]byte
}

func ParseOrchardActionRecord(data []byte) (OrchardActionRecord, error) {
	if err := checkLength("orchard action", data, OrchardActionRecordSize); err != nil {
		return OrchardActionRecord{}, err
	}
	var r OrchardActionRecord
	n := copy(r.Nullifier[:], data)
	n += copy(r.Address[:], data[n:])
	r.Value = binary.LittleEndian.Uint64(data[n : n+8])
	n += 8
	n += copy(r.Epk[:], data[n:])
	n += copy(r.Ciphertext[:], data[n:])
	copy(r.Rseed[:], data[n:])
	return r, nil
}

func (r OrchardActionRecord) Bytes() []byte {
	out := make([]byte, 0, OrchardActionRecordSize)
	out = append(out, r.Nullifier[:]...)
	out = append(out, r.Address[:]...)
	out = binary.LittleEndian.AppendUint64(out, r.Value)
	out = append(out, r.Epk[:]...)
	out = append(out, r.Ciphertext[:]...)
	return append(out, r.Rseed[:]...)
}

// NewOrchardActionRecord extracts the record of an Orchard action.
func NewOrchardActionRecord(a OrchardAction) OrchardActionRecord {
	r := OrchardActionRecord{
		Nullifier: a.Nullifier,
		Address:   a.Recipient,
		Value:     a.Value,
		Epk:       a.EphemeralKey,
		Rseed:     a.Rseed,
	}
	copy(r.Ciphertext[:], a.EncCiphertext[:CompactNoteSize])
	return r
}

// TransparentProofs are the ZIP 244 transparent digests the device cannot
// build itself.
type TransparentProofs struct {
	Prevouts      [32]byte // T.2a / S.2b
	ScriptPubKeys [32]byte // S.2d
	Sequence      [32]byte // T.2b / S.2e
}

// SaplingProofs are the Sapling digests not derived from output records.
type SaplingProofs struct {
	Spends            [32]byte // T.3a
	OutputsMemos      [32]byte // T.3b.ii
	OutputsNoncompact [32]byte // T.3b.iii
}

// OrchardProofs are the Orchard digests and fields not derived from action records.
type OrchardProofs struct {
	ActionsMemos      [32]byte // T.4b
	ActionsNoncompact [32]byte // T.4c
	Anchor            [32]byte // T.4f
}

func splitProofs(record string, data []byte) (a, b, c [32]byte, err error) {
	if err = checkLength(record, data, ProofBundleSize); err != nil {
		return
	}
	copy(a[:], data[:32])
	copy(b[:], data[32:64])
	copy(c[:], data[64:])
	return
}

func joinProofs(a, b, c [32]byte) []byte {
	out := make([]byte, 0, ProofBundleSize)
	out = append(out, a[:]...)
	out = append(out, b[:]...)
	return append(out, c[:]...)
}

func ParseTransparentProofs(data []byte) (TransparentProofs, error) {
	a, b, c, err := splitProofs("transparent proofs", data)
	return TransparentProofs{Prevouts: a, ScriptPubKeys: b, Sequence: c}, err
}

func (p TransparentProofs) Bytes() []byte { return joinProofs(p.Prevouts, p.ScriptPubKeys, p.Sequence) }

func ParseSaplingProofs(data []byte) (SaplingProofs, error) {
	a, b, c, err := splitProofs("sapling proofs", data)
	return SaplingProofs{Spends: a, OutputsMemos: b, OutputsNoncompact: c}, err
}

func (p SaplingProofs) Bytes() []byte {
	return joinProofs(p.Spends, p.OutputsMemos, p.OutputsNoncompact)
}

func ParseOrchardProofs(data []byte) (OrchardProofs, error) {
	a, b, c, err := splitProofs("orchard proofs", data)
	return OrchardProofs{ActionsMemos: a, ActionsNoncompact: b, Anchor: c}, err
}

func (p OrchardProofs) Bytes() []byte {
	return joinProofs(p.ActionsMemos, p.ActionsNoncompact, p.Anchor)
}
