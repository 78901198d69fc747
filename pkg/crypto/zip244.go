// Package crypto implements ZIP 244 digests, the PRFs shared by the Sapling
// and Orchard protocols, and transparent (secp256k1) keys.
//
// ZIP 244 defines the v5 transaction digest algorithm used for signing Zcash
// transactions. The signature hash is computed by hashing together 4 digests:
//  1. Header digest (version, branch id, lock time, expiry)
//  2. Transparent digest (prevouts, sequences, outputs)
//  3. Sapling digest (spends, outputs, value balance)
//  4. Orchard digest (actions, flags, value balance, anchor)
//
// Two families of functions live here. The combine functions (TransparentDigest,
// SaplingDigest, OrchardDigest, SignatureDigest, ...) take already computed
// sub-digests; the signer uses them with digests it accumulates item by item.
// The reference functions (TxID, ShieldedSighash, TransparentSighash) compute
// the same values from a whole tx.Transaction.
//
// References:
//   - ZIP 244: https://zips.z.cash/zip-0244
//   - zcash-test-vectors/zcash_test_vectors/zip_0244.py
package crypto

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// blake2bNew256 creates a new BLAKE2b-256 hash with the given personalization.
// The personalization is NOT a key, but a distinct parameter that modifies
// the hash function.
func blake2bNew256(personalization []byte) (hash.Hash, error) {
	config := &blake2b.Config{
		Size:   32,
		Person: personalization,
	}
	return blake2b.New(config)
}

// ZIP 244 constants - personalization strings for BLAKE2b hashing
const (
	// Transaction ID personalization (12 bytes prefix + 4 bytes branch ID)
	Zip244HashPersonalization = "ZcashTxHash_"

	// Component digest personalizations (all 16 bytes)
	HeaderDigestPersonalization      = "ZTxIdHeadersHash"
	TransparentDigestPersonalization = "ZTxIdTranspaHash"
	SaplingDigestPersonalization     = "ZTxIdSaplingHash"
	OrchardDigestPersonalization     = "ZTxIdOrchardHash"

	// Transparent sub-digests
	PrevoutDigestPersonalization  = "ZTxIdPrevoutHash"
	SequenceDigestPersonalization = "ZTxIdSequencHash"
	OutputsDigestPersonalization  = "ZTxIdOutputsHash"

	// Transparent signature digests (for amounts and scripts)
	AmountsDigestPersonalization = "ZTxTrAmountsHash"
	ScriptsDigestPersonalization = "ZTxTrScriptsHash"
	TxInDigestPersonalization    = "Zcash___TxInHash"

	// Sapling sub-digests
	SaplingSpendsDigestPersonalization      = "ZTxIdSSpendsHash"
	SaplingSpendsCompactPersonalization     = "ZTxIdSSpendCHash"
	SaplingSpendsNoncompactPersonalization  = "ZTxIdSSpendNHash"
	SaplingOutputsDigestPersonalization     = "ZTxIdSOutputHash"
	SaplingOutputsCompactPersonalization    = "ZTxIdSOutC__Hash"
	SaplingOutputsMemosPersonalization      = "ZTxIdSOutM__Hash"
	SaplingOutputsNoncompactPersonalization = "ZTxIdSOutN__Hash"

	// Orchard sub-digests
	OrchardActionsCompactPersonalization    = "ZTxIdOrcActCHash"
	OrchardActionsMemosPersonalization      = "ZTxIdOrcActMHash"
	OrchardActionsNoncompactPersonalization = "ZTxIdOrcActNHash"
)

// SighashAnyoneCanPay may be or'ed into a transparent hash type.
const (
	SighashNone         uint8 = 0x02
	SighashSingle       uint8 = 0x03
	SighashMask         uint8 = 0x1f
	SighashAnyoneCanPay uint8 = 0x80
)

// NewDigest returns a running BLAKE2b-256 hash under a 16-byte ZIP 244
// personalization. It panics on any other length.
func NewDigest(personalization string) hash.Hash {
	if len(personalization) != 16 {
		panic(fmt.Sprintf("personalization must be 16 bytes, got %d", len(personalization)))
	}
	h, err := blake2bNew256([]byte(personalization))
	if err != nil {
		panic(err)
	}
	return h
}

// SumDigest finalizes h into a 32-byte digest.
func SumDigest(h hash.Hash) [32]byte {
	var d [32]byte
	copy(d[:], h.Sum(nil))
	return d
}

// EmptyDigest is the digest of the empty message under personalization.
func EmptyDigest(personalization string) [32]byte {
	return SumDigest(NewDigest(personalization))
}

// TxHashPersonalization is "ZcashTxHash_" || LE32(branchID).
func TxHashPersonalization(branchID uint32) string {
	var p [16]byte
	copy(p[:12], Zip244HashPersonalization)
	binary.LittleEndian.PutUint32(p[12:], branchID)
	return string(p[:])
}

// WriteCompactSize writes a Bitcoin-style varint.
func WriteCompactSize(w io.Writer, n uint64) {
	if n < 253 {
		w.Write([]byte{byte(n)})
	} else if n <= 0xFFFF {
		w.Write([]byte{253})
		binary.Write(w, binary.LittleEndian, uint16(n))
	} else if n <= 0xFFFFFFFF {
		w.Write([]byte{254})
		binary.Write(w, binary.LittleEndian, uint32(n))
	} else {
		w.Write([]byte{255})
		binary.Write(w, binary.LittleEndian, n)
	}
}

// WriteTransparentOutput writes value || CompactSize(len) || script, the
// serialization hashed into the outputs digest.
func WriteTransparentOutput(w io.Writer, value uint64, scriptPubKey []byte) {
	binary.Write(w, binary.LittleEndian, value)
	WriteCompactSize(w, uint64(len(scriptPubKey)))
	w.Write(scriptPubKey)
}

func writeLE64(w io.Writer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.Write(b[:])
}

// TransparentDigest is T.2 for a bundle with at least one input or output.
func TransparentDigest(prevouts, sequence, outputs [32]byte) [32]byte {
	h := NewDigest(TransparentDigestPersonalization)
	h.Write(prevouts[:])
	h.Write(sequence[:])
	h.Write(outputs[:])
	return SumDigest(h)
}

// TransparentSigDigest is S.2 in its full form:
//
//	hash_type || prevouts || amounts || scriptpubkeys || sequence || outputs || txin
func TransparentSigDigest(hashType uint8, prevouts, amounts, scriptPubKeys, sequence, outputs, txin [32]byte) [32]byte {
	h := NewDigest(TransparentDigestPersonalization)
	h.Write([]byte{hashType})
	h.Write(prevouts[:])
	h.Write(amounts[:])
	h.Write(scriptPubKeys[:])
	h.Write(sequence[:])
	h.Write(outputs[:])
	h.Write(txin[:])
	return SumDigest(h)
}

// SaplingOutputsDigest is T.3b for a bundle with at least one output.
func SaplingOutputsDigest(compact, memos, noncompact [32]byte) [32]byte {
	h := NewDigest(SaplingOutputsDigestPersonalization)
	h.Write(compact[:])
	h.Write(memos[:])
	h.Write(noncompact[:])
	return SumDigest(h)
}

// SaplingDigest is T.3 for a non-empty Sapling bundle.
func SaplingDigest(spends, outputs [32]byte, valueBalance int64) [32]byte {
	h := NewDigest(SaplingDigestPersonalization)
	h.Write(spends[:])
	h.Write(outputs[:])
	writeLE64(h, valueBalance)
	return SumDigest(h)
}

// OrchardDigest is T.4 for a bundle with at least one action.
func OrchardDigest(compact, memos, noncompact [32]byte, flags uint8, valueBalance int64, anchor [32]byte) [32]byte {
	h := NewDigest(OrchardDigestPersonalization)
	h.Write(compact[:])
	h.Write(memos[:])
	h.Write(noncompact[:])
	h.Write([]byte{flags})
	writeLE64(h, valueBalance)
	h.Write(anchor[:])
	return SumDigest(h)
}

// SignatureDigest hashes the four top-level digests under the branch
// personalization. With the T.2 transparent digest it yields the txid.
func SignatureDigest(branchID uint32, header, transparent, sapling, orchard [32]byte) [32]byte {
	h := NewDigest(TxHashPersonalization(branchID))
	h.Write(header[:])
	h.Write(transparent[:])
	h.Write(sapling[:])
	h.Write(orchard[:])
	return SumDigest(h)
}

// HeaderDigest computes T.1 over
// version|overwintered || version_group_id || branch_id || lock_time || expiry.
func HeaderDigest(hdr *tx.Header) [32]byte {
	h := NewDigest(HeaderDigestPersonalization)
	binary.Write(h, binary.LittleEndian, hdr.Version|(1<<31))
	binary.Write(h, binary.LittleEndian, hdr.VersionGroupID)
	binary.Write(h, binary.LittleEndian, hdr.ConsensusBranchID)
	binary.Write(h, binary.LittleEndian, hdr.LockTime)
	binary.Write(h, binary.LittleEndian, hdr.ExpiryHeight)
	return SumDigest(h)
}

// PrevoutsDigest is T.2a.
func PrevoutsDigest(inputs []tx.TransparentInput) [32]byte {
	h := NewDigest(PrevoutDigestPersonalization)
	for _, input := range inputs {
		h.Write(input.PrevoutTxID[:])
		binary.Write(h, binary.LittleEndian, input.PrevoutIndex)
	}
	return SumDigest(h)
}

// SequenceDigest is T.2b.
func SequenceDigest(inputs []tx.TransparentInput) [32]byte {
	h := NewDigest(SequenceDigestPersonalization)
	for _, input := range inputs {
		binary.Write(h, binary.LittleEndian, input.Sequence)
	}
	return SumDigest(h)
}

// AmountsDigest is S.2c: the input values, 8 bytes little-endian each.
func AmountsDigest(inputs []tx.TransparentInput) [32]byte {
	h := NewDigest(AmountsDigestPersonalization)
	for _, input := range inputs {
		binary.Write(h, binary.LittleEndian, input.Value)
	}
	return SumDigest(h)
}

// ScriptPubKeysDigest is S.2d.
func ScriptPubKeysDigest(inputs []tx.TransparentInput) [32]byte {
	h := NewDigest(ScriptsDigestPersonalization)
	for _, input := range inputs {
		WriteCompactSize(h, uint64(len(input.ScriptPubKey)))
		h.Write(input.ScriptPubKey)
	}
	return SumDigest(h)
}

// OutputsDigest is T.2c.
func OutputsDigest(outputs []tx.TransparentOutput) [32]byte {
	h := NewDigest(OutputsDigestPersonalization)
	for _, output := range outputs {
		WriteTransparentOutput(h, output.Value, output.ScriptPubKey)
	}
	return SumDigest(h)
}

// TxInDigest is S.2g for the input being signed.
func TxInDigest(input *tx.TransparentInput) [32]byte {
	h := NewDigest(TxInDigestPersonalization)
	h.Write(input.PrevoutTxID[:])
	binary.Write(h, binary.LittleEndian, input.PrevoutIndex)
	binary.Write(h, binary.LittleEndian, input.Value)
	WriteCompactSize(h, uint64(len(input.ScriptPubKey)))
	h.Write(input.ScriptPubKey)
	binary.Write(h, binary.LittleEndian, input.Sequence)
	return SumDigest(h)
}

// TransparentBundleDigest computes T.2, the empty digest when the bundle
// has neither inputs nor outputs.
func TransparentBundleDigest(b *tx.TransparentBundle) [32]byte {
	if len(b.Inputs) == 0 && len(b.Outputs) == 0 {
		return EmptyDigest(TransparentDigestPersonalization)
	}
	return TransparentDigest(PrevoutsDigest(b.Inputs), SequenceDigest(b.Inputs), OutputsDigest(b.Outputs))
}

// SaplingSpendsDigest computes T.3a. Each spend hashes the shared anchor
// into the noncompact part.
func SaplingSpendsDigest(b *tx.SaplingBundle) [32]byte {
	h := NewDigest(SaplingSpendsDigestPersonalization)
	if len(b.Spends) == 0 {
		return SumDigest(h)
	}

	compact := NewDigest(SaplingSpendsCompactPersonalization)
	noncompact := NewDigest(SaplingSpendsNoncompactPersonalization)
	for _, spend := range b.Spends {
		compact.Write(spend.Nullifier[:])

		noncompact.Write(spend.Cv[:])
		noncompact.Write(b.Anchor[:])
		noncompact.Write(spend.Rk[:])
	}
	h.Write(compact.Sum(nil))
	h.Write(noncompact.Sum(nil))
	return SumDigest(h)
}

// SaplingOutputsCompactDigest hashes cmu || epk || enc_ciphertext[..52].
func SaplingOutputsCompactDigest(outputs []tx.SaplingOutput) [32]byte {
	h := NewDigest(SaplingOutputsCompactPersonalization)
	for _, out := range outputs {
		h.Write(out.Cmu[:])
		h.Write(out.EphemeralKey[:])
		h.Write(out.EncCiphertext[:tx.CompactNoteSize])
	}
	return SumDigest(h)
}

// SaplingOutputsMemosDigest hashes enc_ciphertext[52..564].
func SaplingOutputsMemosDigest(outputs []tx.SaplingOutput) [32]byte {
	h := NewDigest(SaplingOutputsMemosPersonalization)
	for _, out := range outputs {
		h.Write(out.EncCiphertext[tx.CompactNoteSize:tx.MemoEnd])
	}
	return SumDigest(h)
}

// SaplingOutputsNoncompactDigest hashes cv || enc_ciphertext[564..] || out_ciphertext.
func SaplingOutputsNoncompactDigest(outputs []tx.SaplingOutput) [32]byte {
	h := NewDigest(SaplingOutputsNoncompactPersonalization)
	for _, out := range outputs {
		h.Write(out.Cv[:])
		h.Write(out.EncCiphertext[tx.MemoEnd:])
		h.Write(out.OutCiphertext[:])
	}
	return SumDigest(h)
}

// SaplingBundleDigest computes T.3.
func SaplingBundleDigest(b *tx.SaplingBundle) [32]byte {
	if len(b.Spends) == 0 && len(b.Outputs) == 0 {
		return EmptyDigest(SaplingDigestPersonalization)
	}
	outputs := EmptyDigest(SaplingOutputsDigestPersonalization)
	if len(b.Outputs) > 0 {
		outputs = SaplingOutputsDigest(
			SaplingOutputsCompactDigest(b.Outputs),
			SaplingOutputsMemosDigest(b.Outputs),
			SaplingOutputsNoncompactDigest(b.Outputs),
		)
	}
	return SaplingDigest(SaplingSpendsDigest(b), outputs, b.ValueBalance)
}

// OrchardActionsCompactDigest hashes nf || cmx || epk || enc_ciphertext[..52].
func OrchardActionsCompactDigest(actions []tx.OrchardAction) [32]byte {
	h := NewDigest(OrchardActionsCompactPersonalization)
	for _, action := range actions {
		h.Write(action.Nullifier[:])
		h.Write(action.Cmx[:])
		h.Write(action.EphemeralKey[:])
		h.Write(action.EncCiphertext[:tx.CompactNoteSize])
	}
	return SumDigest(h)
}

// OrchardActionsMemosDigest hashes enc_ciphertext[52..564].
func OrchardActionsMemosDigest(actions []tx.OrchardAction) [32]byte {
	h := NewDigest(OrchardActionsMemosPersonalization)
	for _, action := range actions {
		h.Write(action.EncCiphertext[tx.CompactNoteSize:tx.MemoEnd])
	}
	return SumDigest(h)
}

// OrchardActionsNoncompactDigest hashes cv_net || rk || enc_ciphertext[564..] || out_ciphertext.
func OrchardActionsNoncompactDigest(actions []tx.OrchardAction) [32]byte {
	h := NewDigest(OrchardActionsNoncompactPersonalization)
	for _, action := range actions {
		h.Write(action.CvNet[:])
		h.Write(action.Rk[:])
		h.Write(action.EncCiphertext[tx.MemoEnd:])
		h.Write(action.OutCiphertext[:])
	}
	return SumDigest(h)
}

// OrchardBundleDigest computes T.4.
func OrchardBundleDigest(b *tx.OrchardBundle) [32]byte {
	if len(b.Actions) == 0 {
		return EmptyDigest(OrchardDigestPersonalization)
	}
	return OrchardDigest(
		OrchardActionsCompactDigest(b.Actions),
		OrchardActionsMemosDigest(b.Actions),
		OrchardActionsNoncompactDigest(b.Actions),
		b.Flags,
		b.ValueBalance,
		b.Anchor,
	)
}

// TxID computes the ZIP 244 transaction identifier.
func TxID(t *tx.Transaction) [32]byte {
	return SignatureDigest(
		t.Header.ConsensusBranchID,
		HeaderDigest(&t.Header),
		TransparentBundleDigest(&t.Transparent),
		SaplingBundleDigest(&t.Sapling),
		OrchardBundleDigest(&t.Orchard),
	)
}

// ShieldedSighash computes the digest signed by Sapling spends and Orchard
// actions. Without transparent inputs (or for a coinbase) the transparent
// part is T.2; otherwise it is the SIGHASH_ALL form of S.2 with the empty
// txin digest.
func ShieldedSighash(t *tx.Transaction) [32]byte {
	var transparent [32]byte
	if len(t.Transparent.Inputs) == 0 || isCoinbase(&t.Transparent) {
		transparent = TransparentBundleDigest(&t.Transparent)
	} else {
		transparent = allInputsSigDigest(&t.Transparent, tx.SighashAll, EmptyDigest(TxInDigestPersonalization))
	}
	return SignatureDigest(
		t.Header.ConsensusBranchID,
		HeaderDigest(&t.Header),
		transparent,
		SaplingBundleDigest(&t.Sapling),
		OrchardBundleDigest(&t.Orchard),
	)
}

// TransparentSighash computes the signature hash for transparent input
// index under hashType (ZIP 244 §4.10).
func TransparentSighash(t *tx.Transaction, index int, hashType uint8) ([32]byte, error) {
	if index < 0 || index >= len(t.Transparent.Inputs) {
		return [32]byte{}, fmt.Errorf("transparent input %d out of range (%d inputs)", index, len(t.Transparent.Inputs))
	}
	return SignatureDigest(
		t.Header.ConsensusBranchID,
		HeaderDigest(&t.Header),
		transparentSigDigestFor(&t.Transparent, index, hashType),
		SaplingBundleDigest(&t.Sapling),
		OrchardBundleDigest(&t.Orchard),
	), nil
}

func allInputsSigDigest(b *tx.TransparentBundle, hashType uint8, txin [32]byte) [32]byte {
	return TransparentSigDigest(
		hashType,
		PrevoutsDigest(b.Inputs),
		AmountsDigest(b.Inputs),
		ScriptPubKeysDigest(b.Inputs),
		SequenceDigest(b.Inputs),
		OutputsDigest(b.Outputs),
		txin,
	)
}

func transparentSigDigestFor(b *tx.TransparentBundle, index int, hashType uint8) [32]byte {
	input := &b.Inputs[index]
	txin := TxInDigest(input)

	var outputs []tx.TransparentOutput
	switch hashType & SighashMask {
	case tx.SighashAll:
		outputs = b.Outputs
	case SighashSingle:
		if index < len(b.Outputs) {
			outputs = b.Outputs[index : index+1]
		}
	case SighashNone:
	}

	if hashType&SighashAnyoneCanPay == 0 {
		return TransparentSigDigest(
			hashType,
			PrevoutsDigest(b.Inputs),
			AmountsDigest(b.Inputs),
			ScriptPubKeysDigest(b.Inputs),
			SequenceDigest(b.Inputs),
			OutputsDigest(outputs),
			txin,
		)
	}
	return TransparentSigDigest(
		hashType,
		EmptyDigest(PrevoutDigestPersonalization),
		EmptyDigest(AmountsDigestPersonalization),
		EmptyDigest(ScriptsDigestPersonalization),
		EmptyDigest(SequenceDigestPersonalization),
		OutputsDigest(outputs),
		txin,
	)
}

// isCoinbase reports whether the bundle has a single input spending the null
// outpoint (32 zero bytes, index 0xffffffff).
func isCoinbase(b *tx.TransparentBundle) bool {
	if len(b.Inputs) != 1 {
		return false
	}
	input := b.Inputs[0]
	return input.PrevoutTxID == [32]byte{} && input.PrevoutIndex == 0xffffffff
}
