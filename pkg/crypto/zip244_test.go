package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// hexDecode decodes a hex string, failing the test on error
func hexDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err, "Failed to decode hex: %s", s)
	return b
}

func hex32(t *testing.T, s string) [32]byte {
	t.Helper()
	b := hexDecode(t, s)
	require.Len(t, b, 32)
	return [32]byte(b)
}

// fill returns n bytes counting up from seed.
func fill(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func p2pkh(hash []byte) []byte {
	script := []byte{0x76, 0xa9, 0x14}
	script = append(script, hash...)
	return append(script, 0x88, 0xac)
}

// sampleTransaction has two transparent inputs, one transparent output, one
// Sapling spend and output and one Orchard action. Every byte field is
// filled with a counting pattern.
func sampleTransaction() *tx.Transaction {
	t := &tx.Transaction{
		Header: tx.Header{
			Version:           tx.V5TxVersion,
			VersionGroupID:    tx.V5VersionGroupID,
			ConsensusBranchID: tx.BranchIDNU5,
			ExpiryHeight:      2000000,
		},
	}
	t.Transparent.Inputs = []tx.TransparentInput{
		{PrevoutTxID: [32]byte(fill(32, 1)), PrevoutIndex: 0, Value: 50000, ScriptPubKey: p2pkh(fill(20, 0x10)), Sequence: 0xffffffff},
		{PrevoutTxID: [32]byte(fill(32, 2)), PrevoutIndex: 3, Value: 70000, ScriptPubKey: p2pkh(fill(20, 0x20)), Sequence: 0xfffffffe},
	}
	t.Transparent.Outputs = []tx.TransparentOutput{
		{Value: 30000, ScriptPubKey: p2pkh(fill(20, 0x30))},
	}

	t.Sapling.Spends = []tx.SaplingSpend{
		{Cv: [32]byte(fill(32, 0x40)), Nullifier: [32]byte(fill(32, 0x41)), Rk: [32]byte(fill(32, 0x42))},
	}
	t.Sapling.Anchor = [32]byte(fill(32, 0x43))
	t.Sapling.Outputs = []tx.SaplingOutput{{
		Cv:            [32]byte(fill(32, 0x50)),
		Cmu:           [32]byte(fill(32, 0x51)),
		EphemeralKey:  [32]byte(fill(32, 0x52)),
		EncCiphertext: [tx.EncCiphertextSize]byte(fill(tx.EncCiphertextSize, 0x53)),
		OutCiphertext: [tx.OutCiphertextSize]byte(fill(tx.OutCiphertextSize, 0x54)),
	}}
	t.Sapling.ValueBalance = 1000

	t.Orchard.Actions = []tx.OrchardAction{{
		CvNet:         [32]byte(fill(32, 0x60)),
		Nullifier:     [32]byte(fill(32, 0x61)),
		Rk:            [32]byte(fill(32, 0x62)),
		Cmx:           [32]byte(fill(32, 0x63)),
		EphemeralKey:  [32]byte(fill(32, 0x64)),
		EncCiphertext: [tx.EncCiphertextSize]byte(fill(tx.EncCiphertextSize, 0x65)),
		OutCiphertext: [tx.OutCiphertextSize]byte(fill(tx.OutCiphertextSize, 0x66)),
	}}
	t.Orchard.Flags = tx.OrchardFlagsEnabled
	t.Orchard.ValueBalance = 2000
	t.Orchard.Anchor = [32]byte(fill(32, 0x67))
	return t
}

func TestBundleDigests(t *testing.T) {
	sample := sampleTransaction()

	tests := []struct {
		name string
		got  [32]byte
		want string
	}{
		{"header", HeaderDigest(&sample.Header), "e082afcb5f7111454177ff15c0d8b3be7cbb1ef5db3458d8af7901c5e3759f01"},
		{"transparent", TransparentBundleDigest(&sample.Transparent), "530aec8821809df7f6e1454ad6a4860e655e5ae8c8ea28698c4e4f7807b7b7de"},
		{"sapling", SaplingBundleDigest(&sample.Sapling), "12af40aff18ce6359de09d86fa882bab433a99d1e67137862e024d104ab0a111"},
		{"orchard", OrchardBundleDigest(&sample.Orchard), "61bf824ca313ff310e36fa9add78a30fee5557fbe9829894c4cff530761469e0"},
		{"txin 0", TxInDigest(&sample.Transparent.Inputs[0]), "38036fd5abdefa425ab45d15f601f2b1a2202a099acff00909f1371787fa7787"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, hex32(t, tt.want), tt.got)
		})
	}
}

func TestTxID(t *testing.T) {
	sample := sampleTransaction()
	assert.Equal(t, hex32(t, "74f5ba00e00e62253917422ee6b44a89eb6769f1a7c0a67a5193111ea817565d"), TxID(sample))

	empty := &tx.Transaction{Header: sample.Header}
	assert.Equal(t, hex32(t, "acdb9caadadd396e20f2a078855f04d27fc065fedfe3d9f1a4d0d571ca9f02c3"), TxID(empty))
}

func TestTxIDSurvivesV5Encoding(t *testing.T) {
	sample := sampleTransaction()
	sample.Orchard.Proof = fill(100, 0x70)

	parsed, err := tx.ParseV5(sample.MarshalV5())
	require.NoError(t, err)
	assert.Equal(t, TxID(sample), TxID(parsed))
}

func TestShieldedSighash(t *testing.T) {
	t.Run("with transparent inputs", func(t *testing.T) {
		sample := sampleTransaction()
		assert.Equal(t, hex32(t, "8227b113c4cb59980aab6d9b8587ac788a49eac317846104067604b6b25a4d62"), ShieldedSighash(sample))
	})

	t.Run("without transparent part", func(t *testing.T) {
		sample := sampleTransaction()
		sample.Transparent = tx.TransparentBundle{}
		got := ShieldedSighash(sample)
		assert.Equal(t, hex32(t, "fbc9ab8d760e0d19f1e500c66a136518a8b383054d4a36bafaa3e51112213884"), got)
		assert.Equal(t, TxID(sample), got, "without transparent inputs the shielded sighash is the txid")
	})

	t.Run("combine functions agree", func(t *testing.T) {
		sample := sampleTransaction()
		ins := sample.Transparent.Inputs
		transparent := TransparentSigDigest(
			tx.SighashAll,
			PrevoutsDigest(ins),
			AmountsDigest(ins),
			ScriptPubKeysDigest(ins),
			SequenceDigest(ins),
			OutputsDigest(sample.Transparent.Outputs),
			EmptyDigest(TxInDigestPersonalization),
		)
		got := SignatureDigest(
			tx.BranchIDNU5,
			HeaderDigest(&sample.Header),
			transparent,
			SaplingBundleDigest(&sample.Sapling),
			OrchardBundleDigest(&sample.Orchard),
		)
		assert.Equal(t, ShieldedSighash(sample), got)
	})
}

func TestTransparentSighash(t *testing.T) {
	sample := sampleTransaction()

	tests := []struct {
		name     string
		index    int
		hashType uint8
		want     string
	}{
		{"input 0 ALL", 0, tx.SighashAll, "b21ffbdb046c2d8dd6ab8a14d09c744cf78cf18dbf25f747c713cd0a6eef9306"},
		{"input 1 ALL|ANYONECANPAY", 1, tx.SighashAll | SighashAnyoneCanPay, "54f41ddb332f8175eeb276df8a8a690a72593437b5266a138c84e7f116d511fc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransparentSighash(sample, tt.index, tt.hashType)
			require.NoError(t, err)
			assert.Equal(t, hex32(t, tt.want), got)
		})
	}

	t.Run("out of range", func(t *testing.T) {
		_, err := TransparentSighash(sample, 2, tx.SighashAll)
		assert.Error(t, err)
	})

	t.Run("NONE and SINGLE differ from ALL", func(t *testing.T) {
		all, err := TransparentSighash(sample, 0, tx.SighashAll)
		require.NoError(t, err)
		none, err := TransparentSighash(sample, 0, SighashNone)
		require.NoError(t, err)
		single, err := TransparentSighash(sample, 1, SighashSingle)
		require.NoError(t, err)
		assert.NotEqual(t, all, none)
		assert.NotEqual(t, all, single)
	})
}

func TestRunningDigestMatchesReference(t *testing.T) {
	sample := sampleTransaction()

	// Feeding outputs one at a time yields the same digest as hashing the
	// whole list.
	h := NewDigest(OutputsDigestPersonalization)
	for _, out := range sample.Transparent.Outputs {
		WriteTransparentOutput(h, out.Value, out.ScriptPubKey)
	}
	assert.Equal(t, OutputsDigest(sample.Transparent.Outputs), SumDigest(h))

	h = NewDigest(OrchardActionsCompactPersonalization)
	for _, a := range sample.Orchard.Actions {
		h.Write(a.Nullifier[:])
		h.Write(a.Cmx[:])
		h.Write(a.EphemeralKey[:])
		h.Write(a.EncCiphertext[:tx.CompactNoteSize])
	}
	assert.Equal(t, OrchardActionsCompactDigest(sample.Orchard.Actions), SumDigest(h))
}

func TestWriteCompactSize(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "00"},
		{252, "fc"},
		{253, "fdfd00"},
		{0xffff, "fdffff"},
		{0x10000, "fe00000100"},
		{0x100000000, "ff0000000001000000"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		WriteCompactSize(&buf, tt.n)
		assert.Equal(t, tt.want, hex.EncodeToString(buf.Bytes()), "n=%d", tt.n)
	}
}

func TestPersonalizedHashes(t *testing.T) {
	assert.Equal(t,
		hexDecode(t, "953b3191513357056cf96c6edde15cc957468968473209e303ca2fae787950bd563f56d01a9edf7146a74c274ba30a78e63ccf1f6cd4499418eeb02fe0e60043"),
		func() []byte { out := PRFExpand(fill(32, 0), []byte{0}); return out[:] }(),
	)
	assert.Equal(t,
		hex32(t, "b3270eee3d6f04890d9b52c2612a1268129b57153001b1e5ef36819b3149631b"),
		Blake2b256(HeaderDigestPersonalization, []byte("abc")),
	)
	assert.Panics(t, func() { NewDigest("short") })
}
