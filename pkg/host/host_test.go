package host

import (
	"bytes"
	"fmt"
	mrand "math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/apdu"
	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
	"github.com/suffix-labs/zcash-signer/pkg/keys"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

type approver struct{ approve bool }

func (a approver) ConfirmFee(signer.FeeSummary) bool { return a.approve }

func (a approver) ConfirmAddress(string, string) bool { return a.approve }

func testProvider(t *testing.T) keys.Provider {
	t.Helper()
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i)
	}
	p, err := keys.NewSeedProvider(seed, keys.CoinTypeMainnet)
	require.NoError(t, err)
	return p
}

// testDevice returns a Device over an in-process dispatcher with account 0
// loaded, and the same account for building recipients.
func testDevice(t *testing.T, approve bool) (*Device, *signer.Account) {
	t.Helper()
	p := testProvider(t)
	d := apdu.New(apdu.Config{
		ConsensusBranchID: tx.BranchIDNU5,
		Provider:          p,
		Approver:          approver{approve},
		Rand:              mrand.New(mrand.NewSource(3)),
	})
	t.Cleanup(d.Close)

	dev := NewDevice(Local{Dispatcher: d})
	require.NoError(t, dev.Initialize(0))

	acct, err := signer.LoadAccount(p, 0)
	require.NoError(t, err)
	t.Cleanup(acct.Close)
	return dev, acct
}

func bytes32(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func buildTransaction(t *testing.T, acct *signer.Account) *tx.Transaction {
	t.Helper()
	c := NewConstructor(tx.BranchIDNU5, 2_500_000, 0, mrand.New(mrand.NewSource(5)))

	require.NoError(t, c.AddTransparentInput(bytes32(0xAA), 1, 50_000, nil, DefaultSequence))
	require.NoError(t, c.AddTransparentOutput(acct.TransparentAddress(crypto.MainnetP2PKHPrefix), 10_000))

	c.SetSaplingAnchor(bytes32(0x01))
	require.NoError(t, c.AddSaplingSpend(bytes32(0x02), [32]byte{}, 30_000))
	memo, err := TextMemo("hello")
	require.NoError(t, err)
	require.NoError(t, c.AddSaplingOutput(acct.SaplingAddress(), 20_000, memo))

	c.SetOrchardAnchor(bytes32(0x03))
	require.NoError(t, c.AddOrchardAction(bytes32(0x04), 40_000, acct.OrchardAddress(), 35_000, NoMemo))

	txn, err := c.Finish()
	require.NoError(t, err)
	return txn
}

func TestSignEndToEnd(t *testing.T) {
	dev, acct := testDevice(t, true)
	txn := buildTransaction(t, acct)
	assert.Equal(t, int64(55_000), txn.Fee())

	sigs, err := NewSigner(dev).Sign(txn)
	require.NoError(t, err)
	require.Len(t, sigs.Transparent, 1)
	assert.Equal(t, acct.TransparentPubKey(), sigs.PubKey)

	sighash := crypto.ShieldedSighash(txn)
	t.Run("sapling", func(t *testing.T) {
		rk, err := jubjub.Decode(txn.Sapling.Spends[0].Rk)
		require.NoError(t, err)
		assert.True(t, sapling.Verify(rk, sighash[:], sapling.Signature(txn.Sapling.Spends[0].SpendAuthSig)))
	})
	t.Run("orchard", func(t *testing.T) {
		rk, err := pallas.Decode(txn.Orchard.Actions[0].Rk)
		require.NoError(t, err)
		assert.True(t, orchard.Verify(rk, sighash[:], orchard.Signature(txn.Orchard.Actions[0].SpendAuthSig)))
	})

	require.NoError(t, NewSpendFinalizer(txn, sigs).Finalize())
	in := txn.Transparent.Inputs[0]
	assert.Len(t, in.ScriptPubKey, 25)
	assert.True(t, bytes.HasSuffix(in.ScriptSig, sigs.PubKey[:]))

	raw, txid, err := NewTxExtractor(txn).Extract()
	require.NoError(t, err)

	parsed, err := tx.ParseV5(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, parsed.MarshalV5())
	assert.Equal(t, txid, crypto.TxID(parsed))
	assert.Equal(t, txn.Sapling.Spends[0].SpendAuthSig, parsed.Sapling.Spends[0].SpendAuthSig)

	// The device session is over.
	_, err = dev.Sighash()
	var se *apdu.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apdu.SWBadState, se.Status)
}

func TestSignTransparentOnly(t *testing.T) {
	dev, acct := testDevice(t, true)
	c := NewConstructor(tx.BranchIDNU5, 0, 0, mrand.New(mrand.NewSource(1)))
	require.NoError(t, c.AddTransparentInput(bytes32(0x10), 0, 20_000, nil, DefaultSequence))
	require.NoError(t, c.AddTransparentInput(bytes32(0x11), 3, 5_000, nil, 0xFFFFFFFE))
	require.NoError(t, c.AddTransparentOutput(acct.TransparentAddress(crypto.MainnetP2PKHPrefix), 15_000))
	txn, err := c.Finish()
	require.NoError(t, err)

	sigs, err := NewSigner(dev).Sign(txn)
	require.NoError(t, err)
	require.Len(t, sigs.Transparent, 2)
	require.NoError(t, NewSpendFinalizer(txn, sigs).Finalize())
	_, _, err = NewTxExtractor(txn).Extract()
	require.NoError(t, err)
}

func TestSignRejectedFee(t *testing.T) {
	dev, acct := testDevice(t, false)
	txn := buildTransaction(t, acct)

	_, err := NewSigner(dev).Sign(txn)
	var se *apdu.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apdu.SWDenied, se.Status)
	assert.Contains(t, err.Error(), "CONFIRM_FEE")

	_, err = dev.Sighash()
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apdu.SWBadState, se.Status)
}

func TestSignForeignInput(t *testing.T) {
	dev, acct := testDevice(t, true)
	other := tx.TransparentOutputRecord{AddressType: tx.AddressTypeP2PKH, AddressHash: [20]byte{1}}
	c := NewConstructor(tx.BranchIDNU5, 0, 0, mrand.New(mrand.NewSource(1)))
	require.NoError(t, c.AddTransparentInput(bytes32(0x10), 0, 20_000, other.ScriptPubKey(), DefaultSequence))
	require.NoError(t, c.AddTransparentOutput(acct.TransparentAddress(crypto.MainnetP2PKHPrefix), 15_000))
	txn, err := c.Finish()
	require.NoError(t, err)

	_, err = NewSigner(dev).Sign(txn)
	assert.ErrorIs(t, err, ErrForeignInput)
}

var payee = crypto.EncodeTransparentAddress(crypto.MainnetP2SHPrefix, [20]byte{7})

func TestConstructorErrors(t *testing.T) {
	c := NewConstructor(tx.BranchIDNU5, 0, 0, mrand.New(mrand.NewSource(1)))
	require.NoError(t, c.AddTransparentInput(bytes32(0x10), 0, 1_000, nil, DefaultSequence))
	require.NoError(t, c.AddTransparentOutput(payee, 2_000))
	_, err := c.Finish()
	assert.ErrorIs(t, err, ErrNegativeFee)

	assert.Error(t, c.AddTransparentInput(bytes32(0x10), 0, tx.MaxMoney+1, nil, DefaultSequence))
	assert.Error(t, c.AddTransparentOutput("t1notanaddress0", 1))
}

func TestTransparentOutputScripts(t *testing.T) {
	c := NewConstructor(tx.BranchIDNU5, 0, 0, mrand.New(mrand.NewSource(1)))
	require.NoError(t, c.AddTransparentOutput(payee, 1))
	require.NoError(t, c.AddTransparentOutput(crypto.EncodeTransparentAddress(crypto.TestnetP2PKHPrefix, [20]byte{7}), 1))

	outs := c.txn.Transparent.Outputs
	r, err := tx.TransparentOutputRecordFromOutput(outs[0])
	require.NoError(t, err)
	assert.Equal(t, tx.AddressTypeP2SH, r.AddressType)
	r, err = tx.TransparentOutputRecordFromOutput(outs[1])
	require.NoError(t, err)
	assert.Equal(t, tx.AddressTypeP2PKH, r.AddressType)
	assert.Equal(t, [20]byte{7}, r.AddressHash)
}

func TestMemo(t *testing.T) {
	m, err := TextMemo("")
	require.NoError(t, err)
	assert.Equal(t, NoMemo, m)
	assert.Equal(t, byte(0xF6), m[0])

	m, err = TextMemo("gm")
	require.NoError(t, err)
	assert.Equal(t, []byte("gm"), m[:2])
	assert.Equal(t, make([]byte, crypto.MemoSize-2), m[2:])

	_, err = TextMemo(strings.Repeat("a", crypto.MemoSize+1))
	assert.Error(t, err)
	_, err = TextMemo("\xff\xfe")
	assert.Error(t, err)
	_, err = RawMemo([]byte{0xff, 0xfe})
	assert.NoError(t, err)
}

func TestExtractorRequiresSignatures(t *testing.T) {
	_, acct := testDevice(t, true)
	txn := buildTransaction(t, acct)
	_, _, err := NewTxExtractor(txn).Extract()
	assert.ErrorIs(t, err, ErrNotSigned)

	err = NewSpendFinalizer(txn, &Signatures{}).Finalize()
	assert.Error(t, err)
}

func TestDeviceInfo(t *testing.T) {
	dev, _ := testDevice(t, true)

	v, err := dev.Version()
	require.NoError(t, err)
	assert.Equal(t, [3]byte{1, 0, 0}, v)

	name, err := dev.AppName()
	require.NoError(t, err)
	assert.Equal(t, "Zcash", name)

	results, err := dev.SelfTest()
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results[0], 32)
	assert.Len(t, results[1], 32)
	assert.Len(t, results[2], 64)

	_, addr, err := dev.PublicKey(true)
	require.NoError(t, err)
	pa, err := sapling.ParsePaymentAddress(addr)
	require.NoError(t, err)
	assert.NotZero(t, pa.PkD)
}

func TestDocument(t *testing.T) {
	dev, acct := testDevice(t, true)
	zaddr, err := acct.SaplingAddress().Encode()
	require.NoError(t, err)
	taddr := acct.TransparentAddress(crypto.MainnetP2PKHPrefix)
	orecipient := acct.OrchardAddress().Bytes()

	src := fmt.Sprintf(`
branch_id: 0xC2D6D0B4
expiry_height: 2500000
transparent_inputs:
  - txid: "%x"
    index: 0
    value: 100000
transparent_outputs:
  - address: %s
    value: 10000
sapling_outputs:
  - address: %s
    value: 20000
    memo: thanks
orchard_anchor: "%x"
orchard_actions:
  - nullifier: "%x"
    spent: 0
    recipient: "%x"
    value: 5000
request: "zcash:%s?amount=0.0003&memo=aGVsbG8"
`, bytes32(0xAB), taddr, zaddr, bytes32(0x03), bytes32(0x04), orecipient, zaddr)

	doc, err := ParseDocument(strings.NewReader(src))
	require.NoError(t, err)
	txn, err := doc.Build(tx.BranchIDNU6, mrand.New(mrand.NewSource(2)))
	require.NoError(t, err)

	assert.Equal(t, tx.BranchIDNU5, txn.Header.ConsensusBranchID)
	assert.Equal(t, byte(0xAB), txn.Transparent.Inputs[0].PrevoutTxID[0])
	require.Len(t, txn.Sapling.Outputs, 2)
	assert.Equal(t, uint64(30_000), txn.Sapling.Outputs[1].Value)
	assert.Equal(t, int64(-50_000), txn.Sapling.ValueBalance)
	assert.Equal(t, int64(-5_000), txn.Orchard.ValueBalance)
	assert.Equal(t, int64(35_000), txn.Fee())

	_, err = NewSigner(dev).Sign(txn)
	require.NoError(t, err)
}

func TestDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "inputs: []\n"},
		{"bad hex", "sapling_anchor: xyz\n"},
		{"short txid", "transparent_inputs:\n  - txid: abcd\n    value: 1\n"},
		{"bad address", "transparent_outputs:\n  - address: t1nope\n    value: 1\n"},
		{"bad sapling address", "sapling_outputs:\n  - address: zs1nope\n    value: 1\n"},
		{"short recipient", "orchard_actions:\n  - nullifier: \"" + strings.Repeat("00", 32) + "\"\n    recipient: abcd\n"},
		{"bad request", "request: \"bitcoin:abc\"\n"},
		{"negative fee", "transparent_outputs:\n  - address: " + payee + "\n    value: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument(strings.NewReader(tt.src))
			if err == nil {
				_, err = doc.Build(tx.BranchIDNU5, mrand.New(mrand.NewSource(1)))
			}
			var pe *tx.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tx.ErrInvalidDocument, pe.Code)
		})
	}
}
