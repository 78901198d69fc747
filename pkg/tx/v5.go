package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// overwinteredFlag is bit 31 of the serialized version field.
const overwinteredFlag uint32 = 1 << 31

// ParseV5 decodes a ZIP 225 v5 transaction. Note plaintexts, input values
// and input scriptPubKeys are not part of the encoding and stay zero.
func ParseV5(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	t := &Transaction{}

	if err := parseHeader(r, &t.Header); err != nil {
		return nil, malformed("header", err)
	}
	if err := parseTransparentBundle(r, &t.Transparent); err != nil {
		return nil, malformed("transparent bundle", err)
	}
	if err := parseSaplingBundle(r, &t.Sapling); err != nil {
		return nil, malformed("sapling bundle", err)
	}
	if err := parseOrchardBundle(r, &t.Orchard); err != nil {
		return nil, malformed("orchard bundle", err)
	}
	if r.Len() != 0 {
		return nil, &ParseError{
			Code:    ErrMalformedTx,
			Record:  "transaction",
			Message: fmt.Sprintf("%d trailing bytes", r.Len()),
		}
	}
	return t, nil
}

func malformed(part string, err error) error {
	return &ParseError{Code: ErrMalformedTx, Record: part, Message: "decode failed", Cause: err}
}

func parseHeader(r io.Reader, h *Header) error {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if version&overwinteredFlag == 0 {
		return fmt.Errorf("not an overwintered transaction (version=0x%08x)", version)
	}
	h.Version = version &^ overwinteredFlag
	if h.Version != V5TxVersion {
		return fmt.Errorf("not a v5 transaction (version=%d)", h.Version)
	}

	for _, field := range []struct {
		name string
		dst  *uint32
	}{
		{"version_group_id", &h.VersionGroupID},
		{"consensus_branch_id", &h.ConsensusBranchID},
		{"lock_time", &h.LockTime},
		{"expiry_height", &h.ExpiryHeight},
	} {
		if err := binary.Read(r, binary.LittleEndian, field.dst); err != nil {
			return fmt.Errorf("reading %s: %w", field.name, err)
		}
	}
	if h.VersionGroupID != V5VersionGroupID {
		return fmt.Errorf("unexpected version group id 0x%08x", h.VersionGroupID)
	}
	return nil
}

// parseTransparentBundle reads the transparent inputs and outputs.
func parseTransparentBundle(r *bytes.Reader, b *TransparentBundle) error {
	numInputs, err := readCount(r, 32+4+1+4)
	if err != nil {
		return fmt.Errorf("reading input count: %w", err)
	}
	if numInputs > 0 {
		b.Inputs = make([]TransparentInput, numInputs)
	}
	for i := range b.Inputs {
		in := &b.Inputs[i]
		if _, err := io.ReadFull(r, in.PrevoutTxID[:]); err != nil {
			return fmt.Errorf("reading input %d prevout txid: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.PrevoutIndex); err != nil {
			return fmt.Errorf("reading input %d prevout index: %w", i, err)
		}
		if in.ScriptSig, err = readScript(r); err != nil {
			return fmt.Errorf("reading input %d scriptSig: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
			return fmt.Errorf("reading input %d sequence: %w", i, err)
		}
	}

	numOutputs, err := readCount(r, 8+1)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	if numOutputs > 0 {
		b.Outputs = make([]TransparentOutput, numOutputs)
	}
	for i := range b.Outputs {
		out := &b.Outputs[i]
		if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
			return fmt.Errorf("reading output %d value: %w", i, err)
		}
		if out.ScriptPubKey, err = readScript(r); err != nil {
			return fmt.Errorf("reading output %d scriptPubKey: %w", i, err)
		}
	}
	return nil
}

// parseSaplingBundle reads the Sapling spends and outputs in v5 layout:
// descriptors first, then value balance, the shared anchor (only with
// spends), spend proofs, spend auth sigs, output proofs and the binding sig.
func parseSaplingBundle(r *bytes.Reader, b *SaplingBundle) error {
	numSpends, err := readCount(r, 3*32)
	if err != nil {
		return fmt.Errorf("reading spend count: %w", err)
	}
	if numSpends > 0 {
		b.Spends = make([]SaplingSpend, numSpends)
	}
	for i := range b.Spends {
		spend := &b.Spends[i]
		if err := readArrays(r, spend.Cv[:], spend.Nullifier[:], spend.Rk[:]); err != nil {
			return fmt.Errorf("reading spend %d: %w", i, err)
		}
	}

	numOutputs, err := readCount(r, 3*32+EncCiphertextSize+OutCiphertextSize)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	if numOutputs > 0 {
		b.Outputs = make([]SaplingOutput, numOutputs)
	}
	for i := range b.Outputs {
		out := &b.Outputs[i]
		if err := readArrays(r, out.Cv[:], out.Cmu[:], out.EphemeralKey[:], out.EncCiphertext[:], out.OutCiphertext[:]); err != nil {
			return fmt.Errorf("reading output %d: %w", i, err)
		}
	}

	if numSpends == 0 && numOutputs == 0 {
		return nil
	}

	if err := binary.Read(r, binary.LittleEndian, &b.ValueBalance); err != nil {
		return fmt.Errorf("reading value balance: %w", err)
	}
	if numSpends > 0 {
		if _, err := io.ReadFull(r, b.Anchor[:]); err != nil {
			return fmt.Errorf("reading anchor: %w", err)
		}
	}
	for i := range b.Spends {
		if _, err := io.ReadFull(r, b.Spends[i].Proof[:]); err != nil {
			return fmt.Errorf("reading spend %d proof: %w", i, err)
		}
	}
	for i := range b.Spends {
		if _, err := io.ReadFull(r, b.Spends[i].SpendAuthSig[:]); err != nil {
			return fmt.Errorf("reading spend %d auth sig: %w", i, err)
		}
	}
	for i := range b.Outputs {
		if _, err := io.ReadFull(r, b.Outputs[i].Proof[:]); err != nil {
			return fmt.Errorf("reading output %d proof: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, b.BindingSig[:]); err != nil {
		return fmt.Errorf("reading binding sig: %w", err)
	}
	return nil
}

// parseOrchardBundle reads the Orchard actions followed by flags, value
// balance, anchor, proof, spend auth sigs and the binding sig.
func parseOrchardBundle(r *bytes.Reader, b *OrchardBundle) error {
	numActions, err := readCount(r, 5*32+EncCiphertextSize+OutCiphertextSize)
	if err != nil {
		return fmt.Errorf("reading action count: %w", err)
	}
	if numActions == 0 {
		return nil
	}

	b.Actions = make([]OrchardAction, numActions)
	for i := range b.Actions {
		a := &b.Actions[i]
		if err := readArrays(r, a.CvNet[:], a.Nullifier[:], a.Rk[:], a.Cmx[:], a.EphemeralKey[:], a.EncCiphertext[:], a.OutCiphertext[:]); err != nil {
			return fmt.Errorf("reading action %d: %w", i, err)
		}
	}

	flags, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	b.Flags = flags
	if err := binary.Read(r, binary.LittleEndian, &b.ValueBalance); err != nil {
		return fmt.Errorf("reading value balance: %w", err)
	}
	if _, err := io.ReadFull(r, b.Anchor[:]); err != nil {
		return fmt.Errorf("reading anchor: %w", err)
	}

	proofLen, err := readCount(r, 1)
	if err != nil {
		return fmt.Errorf("reading proof length: %w", err)
	}
	b.Proof = make([]byte, proofLen)
	if _, err := io.ReadFull(r, b.Proof); err != nil {
		return fmt.Errorf("reading proof: %w", err)
	}
	for i := range b.Actions {
		if _, err := io.ReadFull(r, b.Actions[i].SpendAuthSig[:]); err != nil {
			return fmt.Errorf("reading action %d auth sig: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, b.BindingSig[:]); err != nil {
		return fmt.Errorf("reading binding sig: %w", err)
	}
	return nil
}

func readArrays(r io.Reader, dst ...[]byte) error {
	for _, d := range dst {
		if _, err := io.ReadFull(r, d); err != nil {
			return err
		}
	}
	return nil
}

func readScript(r *bytes.Reader) ([]byte, error) {
	n, err := readCount(r, 1)
	if err != nil {
		return nil, err
	}
	script := make([]byte, n)
	if _, err := io.ReadFull(r, script); err != nil {
		return nil, err
	}
	return script, nil
}

// readCount reads a CompactSize count and rejects counts that could not fit
// in the remaining input at minSize bytes per element.
func readCount(r *bytes.Reader, minSize int) (int, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Len()/minSize) {
		return 0, fmt.Errorf("count %d exceeds remaining %d bytes", n, r.Len())
	}
	return int(n), nil
}

// readCompactSize reads a Bitcoin-style variable-length integer.
func readCompactSize(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}

	switch first[0] {
	case 253:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 254:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 255:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return uint64(first[0]), nil
	}
}

// MarshalV5 serializes t in the ZIP 225 v5 format. Proofs and signatures
// are written as held, so an unsigned transaction carries zero bytes there.
func (t *Transaction) MarshalV5() []byte {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, t.Header.Version|overwinteredFlag)
	binary.Write(&buf, binary.LittleEndian, t.Header.VersionGroupID)
	binary.Write(&buf, binary.LittleEndian, t.Header.ConsensusBranchID)
	binary.Write(&buf, binary.LittleEndian, t.Header.LockTime)
	binary.Write(&buf, binary.LittleEndian, t.Header.ExpiryHeight)

	writeCompactSize(&buf, uint64(len(t.Transparent.Inputs)))
	for _, in := range t.Transparent.Inputs {
		buf.Write(in.PrevoutTxID[:])
		binary.Write(&buf, binary.LittleEndian, in.PrevoutIndex)
		writeCompactSize(&buf, uint64(len(in.ScriptSig)))
		buf.Write(in.ScriptSig)
		binary.Write(&buf, binary.LittleEndian, in.Sequence)
	}
	writeCompactSize(&buf, uint64(len(t.Transparent.Outputs)))
	for _, out := range t.Transparent.Outputs {
		binary.Write(&buf, binary.LittleEndian, out.Value)
		writeCompactSize(&buf, uint64(len(out.ScriptPubKey)))
		buf.Write(out.ScriptPubKey)
	}

	s := &t.Sapling
	writeCompactSize(&buf, uint64(len(s.Spends)))
	for _, spend := range s.Spends {
		buf.Write(spend.Cv[:])
		buf.Write(spend.Nullifier[:])
		buf.Write(spend.Rk[:])
	}
	writeCompactSize(&buf, uint64(len(s.Outputs)))
	for _, out := range s.Outputs {
		buf.Write(out.Cv[:])
		buf.Write(out.Cmu[:])
		buf.Write(out.EphemeralKey[:])
		buf.Write(out.EncCiphertext[:])
		buf.Write(out.OutCiphertext[:])
	}
	if len(s.Spends) > 0 || len(s.Outputs) > 0 {
		binary.Write(&buf, binary.LittleEndian, s.ValueBalance)
		if len(s.Spends) > 0 {
			buf.Write(s.Anchor[:])
		}
		for _, spend := range s.Spends {
			buf.Write(spend.Proof[:])
		}
		for _, spend := range s.Spends {
			buf.Write(spend.SpendAuthSig[:])
		}
		for _, out := range s.Outputs {
			buf.Write(out.Proof[:])
		}
		buf.Write(s.BindingSig[:])
	}

	o := &t.Orchard
	writeCompactSize(&buf, uint64(len(o.Actions)))
	if len(o.Actions) > 0 {
		for _, a := range o.Actions {
			buf.Write(a.CvNet[:])
			buf.Write(a.Nullifier[:])
			buf.Write(a.Rk[:])
			buf.Write(a.Cmx[:])
			buf.Write(a.EphemeralKey[:])
			buf.Write(a.EncCiphertext[:])
			buf.Write(a.OutCiphertext[:])
		}
		buf.WriteByte(o.Flags)
		binary.Write(&buf, binary.LittleEndian, o.ValueBalance)
		buf.Write(o.Anchor[:])
		writeCompactSize(&buf, uint64(len(o.Proof)))
		buf.Write(o.Proof)
		for _, a := range o.Actions {
			buf.Write(a.SpendAuthSig[:])
		}
		buf.Write(o.BindingSig[:])
	}

	return buf.Bytes()
}

// writeCompactSize writes a CompactSize-encoded integer.
func writeCompactSize(buf *bytes.Buffer, n uint64) {
	if n < 0xFD {
		buf.WriteByte(byte(n))
	} else if n <= 0xFFFF {
		buf.WriteByte(0xFD)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	} else if n <= 0xFFFFFFFF {
		buf.WriteByte(0xFE)
		binary.Write(buf, binary.LittleEndian, uint32(n))
	} else {
		buf.WriteByte(0xFF)
		binary.Write(buf, binary.LittleEndian, n)
	}
}
