package tx

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyTransaction() *Transaction {
	return &Transaction{Header: Header{
		Version:           V5TxVersion,
		VersionGroupID:    V5VersionGroupID,
		ConsensusBranchID: BranchIDNU5,
		LockTime:          0,
		ExpiryHeight:      0,
	}}
}

func TestMarshalEmpty(t *testing.T) {
	raw := emptyTransaction().MarshalV5()
	assert.Equal(t, "050000800a27a726b4d0d6c200000000000000000000000000", hex.EncodeToString(raw))

	got, err := ParseV5(raw)
	require.NoError(t, err)
	assert.Equal(t, emptyTransaction(), got)
}

func sampleTransaction() *Transaction {
	t := emptyTransaction()
	t.Header.ExpiryHeight = 2_500_000
	t.Transparent.Inputs = []TransparentInput{{
		PrevoutTxID:  [32]byte{0xAA},
		PrevoutIndex: 1,
		Sequence:     0xFFFFFFFF,
		ScriptSig:    []byte{0x01, 0x02, 0x03},
	}}
	t.Transparent.Outputs = []TransparentOutput{{
		Value:        15_000,
		ScriptPubKey: TransparentOutputRecord{AddressHash: [20]byte{1}}.ScriptPubKey(),
	}}
	t.Sapling = SaplingBundle{
		Spends:       []SaplingSpend{{Cv: [32]byte{1}, Nullifier: [32]byte{2}, Rk: [32]byte{3}, SpendAuthSig: [64]byte{4}}},
		Outputs:      []SaplingOutput{{Cv: [32]byte{5}, Cmu: [32]byte{6}, EphemeralKey: [32]byte{7}}},
		ValueBalance: -1000,
		Anchor:       [32]byte{8},
		BindingSig:   [64]byte{9},
	}
	t.Orchard = OrchardBundle{
		Actions:      []OrchardAction{{CvNet: [32]byte{10}, Nullifier: [32]byte{11}, Rk: [32]byte{12}, SpendAuthSig: [64]byte{13}}},
		Flags:        OrchardFlagsEnabled,
		ValueBalance: 500,
		Anchor:       [32]byte{14},
		Proof:        []byte{0xCA, 0xFE},
		BindingSig:   [64]byte{15},
	}
	return t
}

func TestRoundTrip(t *testing.T) {
	want := sampleTransaction()
	raw := want.MarshalV5()

	got, err := ParseV5(raw)
	require.NoError(t, err)
	assert.Equal(t, want.Header, got.Header)
	assert.Equal(t, want.Transparent, got.Transparent)
	assert.Equal(t, want.Sapling, got.Sapling)
	assert.Equal(t, want.Orchard, got.Orchard)
	assert.Equal(t, raw, got.MarshalV5())
}

func TestParseMalformed(t *testing.T) {
	raw := sampleTransaction().MarshalV5()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not overwintered", append([]byte{0x05, 0, 0, 0}, raw[4:]...)},
		{"v4", append([]byte{0x04, 0, 0, 0x80}, raw[4:]...)},
		{"bad group id", append(append([]byte{}, raw[:4]...), append([]byte{0, 0, 0, 0}, raw[8:]...)...)},
		{"truncated", raw[:len(raw)-1]},
		{"trailing", append(append([]byte{}, raw...), 0x00)},
		{"huge count", append(append([]byte{}, raw[:20]...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseV5(tt.data)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, ErrMalformedTx, pe.Code)
		})
	}
}

func TestFee(t *testing.T) {
	txn := sampleTransaction()
	txn.Transparent.Inputs[0].Value = 20_000
	// 20000 - 15000 - 1000 + 500
	assert.Equal(t, int64(4_500), txn.Fee())
}
