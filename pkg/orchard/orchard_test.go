package orchard

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func hexOf(b [32]byte) string { return hex.EncodeToString(b[:]) }

// Spending key of ZIP-32 account m/32'/133'/0' for the seed 00..1f.
const accountSK = "b67d8d87cab9189500afb45dbca9f92c924c1de9d9ee1451be4a78313cb223b4"

func TestSpendAuthGenerator(t *testing.T) {
	assert.Equal(t, "63c975b884721a8d0ca1707be30c7f0c5f445f3e7c188d3b06d6f128b32355b7", hexOf(SpendAuthGenerator().Encode()))
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name                            string
		sk                              string
		ask, ak, nk, rivk, ivk, dk, ovk string
		d, pkd                          string
	}{
		{
			name: "master",
			sk:   "7eee3c1017870990a3dd6891b82f80be8976c1e7dc20d60817a5e88e8b2cd4b8",
			ask:  "55f2b2f5c7ff52a8ed0d003567771979eb83f01fa778ef35bcd67789e8e49221",
			ak:   "89f74c4d28d954b3726a9a6c3cc1f4f08e0948fbc0a90744983757cfbe526f24",
			nk:   "33162c4765f536bbc23d35b1eb822a229067746ffa940d513a9146558f036127",
			rivk: "39299c18f7c420e22bb498d58fb0cce9a49f680b9190d9c6c925b4d90a6ea020",
			ivk:  "06867eedb05a9cdef7aee4ced368c9c9bff4b83a442a355b4f7379b4a2214c24",
			dk:   "2b2170c3b09f6e6bfeb793341cadee4bc3ae5fd18fc00065054e81899423817d",
			ovk:  "5d0d1680f55bbcc8cd7e9c1b89e66bda50e24931348ea487afd473c35a7bff6e",
			d:    "dde026181cd33a66bb8bfb",
			pkd:  "a90f66f9f26e103fa0d79e20b884c4733306c733bd6d5b4b51200caa2c17be88",
		},
		{
			name: "m/32'/133'/0'",
			sk:   accountSK,
			ask:  "5383ac42eb496bbd60516ddee672428b2e8a4371ad0c1e0e60ac6db202b33b24",
			ak:   "7648764a4567b7165410bc313f922b72fa34153dcad112a3971620240ffbf30d",
			nk:   "7f19edb9f295cdf160be1863b41c96312daf7273ba01198f5066f28629b56f17",
			rivk: "e4ab726579eea0fb19ab5ae2b8889ce455c79c5959bfda796823ee805c794814",
			ivk:  "25b7227d3c54b8cdd380a2c64bcd461aca877bfa37b360f3fe69717bf31bc401",
			dk:   "aa47607810549c231e0e8415d5b932a7c9d9798ff11ecb9ca9dd892b9a43b230",
			ovk:  "1f866c5fa840bf2565967f2d1f57de29069e4e4519bea4542c3f7ab831ee0ce8",
			d:    "d4714ee761d1ae823b6972",
			pkd:  "152e20957fefa3f6e3129ea4dfb0a9e98703a63dab929589d6dc51c970f935b3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk := SpendingKey([32]byte(mustHex(t, tt.sk)))
			ask, err := sk.SpendAuthorizingKey()
			require.NoError(t, err)
			assert.Equal(t, tt.ask, hexOf(ask.LEBytes()))

			fvk, err := sk.FullViewingKey()
			require.NoError(t, err)
			assert.Equal(t, tt.ak, hexOf(fvk.Ak.Encode()))
			assert.Equal(t, tt.nk, hexOf(fvk.Nk.LEBytes()))
			assert.Equal(t, tt.rivk, hexOf(fvk.Rivk.LEBytes()))
			assert.Equal(t, tt.dk, hexOf(fvk.DiversifierKey()))
			assert.Equal(t, tt.ovk, hexOf(fvk.OutgoingViewingKey()))

			ivk, err := fvk.IncomingViewingKey()
			require.NoError(t, err)
			assert.Equal(t, tt.ivk, hexOf(ivk.LEBytes()))

			raw := fvk.Bytes()
			assert.Equal(t, tt.ak+tt.nk+tt.rivk, hex.EncodeToString(raw[:]))

			addr, err := fvk.Address(0)
			require.NoError(t, err)
			assert.Equal(t, tt.d, hex.EncodeToString(addr.Diversifier[:]))
			assert.Equal(t, tt.pkd, hexOf(addr.PkD))

			parsed, err := ParseAddress(addr.Bytes())
			require.NoError(t, err)
			assert.Equal(t, addr, parsed)
		})
	}
}

func TestParseAddressRejectsIdentity(t *testing.T) {
	var raw [43]byte
	_, err := ParseAddress(raw)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	raw[42] = 0xff
	_, err = ParseAddress(raw)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSinsemilla(t *testing.T) {
	bits := make(crypto.Bits, 0, 32)
	bits = bits.AppendBytes([]byte("abcd"), 32)

	a, err := SinsemillaHashToPoint("z.cash:test-Sinsemilla", bits)
	require.NoError(t, err)
	b, err := SinsemillaHashToPoint("z.cash:test-Sinsemilla", bits)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.True(t, a.IsOnCurve())

	c, err := SinsemillaHashToPoint("z.cash:test-Sinsemilla", bits[:31])
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	long := make(crypto.Bits, sinsemillaK*sinsemillaMaxChunk+1)
	_, err = SinsemillaHashToPoint("z.cash:test-Sinsemilla", long)
	assert.ErrorIs(t, err, ErrSinsemilla)
}

func accountAddress(t *testing.T) (FullViewingKey, Address) {
	t.Helper()
	fvk, err := SpendingKey([32]byte(mustHex(t, accountSK))).FullViewingKey()
	require.NoError(t, err)
	addr, err := fvk.Address(0)
	require.NoError(t, err)
	return fvk, addr
}

func testNote(t *testing.T) Note {
	t.Helper()
	_, addr := accountAddress(t)
	return Note{
		Recipient: addr,
		Value:     250000,
		Rho:       [32]byte(bytes.Repeat([]byte{0x07}, 32)),
		Rseed:     [32]byte(bytes.Repeat([]byte{0x24}, 32)),
	}
}

func TestNoteEncrypt(t *testing.T) {
	n := testNote(t)
	assert.Equal(t, "bce650d946b0900ac0f76e28143d7eed733b39b59a90283a1d06a35f49216d06", hexOf(n.Esk().LEBytes()))
	assert.Equal(t, "dc0e98bbdc39e0fff2d067f19c039b2541a611d29749c5577b8637373117d32a", hexOf(n.Rcm().LEBytes()))
	assert.Equal(t, "270ebcb031183318022f9f9d8e990a949d646d0f09c77ad541efd7d3f619882b", hexOf(n.Psi().LEBytes()))

	out, err := n.Encrypt()
	require.NoError(t, err)
	assert.Equal(t, "837e7262e1a0e9d0953bcc9df8f6b05946600ec992c149ba0e2b0e0ae16d9a07", hexOf(out.Cmx))
	assert.Equal(t, "6aeeb2930a344741eb4b6cf7a522599d00c8ba5604bcf50968868e368f9020a6", hexOf(out.Epk))
	assert.Equal(t, "ee6b21d6b3f292adfebd0db25112b69de85647b62324befa84b819e1bfed7fab624c7ab1bf97cfbdabee783e703c489119fb6b18", hex.EncodeToString(out.Ciphertext[:]))

	got, err := n.VerifyAction(out.Epk, out.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	ct := out.Ciphertext
	ct[0] ^= 1
	_, err = n.VerifyAction(out.Epk, ct)
	assert.ErrorIs(t, err, ErrActionMismatch)

	bad := n
	bad.Rho = [32]byte(bytes.Repeat([]byte{0xff}, 32))
	_, err = bad.Encrypt()
	assert.ErrorIs(t, err, field.ErrNonCanonical)
}

func TestNoteCiphertextMatchesAEAD(t *testing.T) {
	n := testNote(t)
	out, err := n.Encrypt()
	require.NoError(t, err)

	fvk, _ := accountAddress(t)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	epk, err := pallas.Decode(out.Epk)
	require.NoError(t, err)
	// The recipient derives the shared secret as [ivk] epk.
	shared := epk.ScalarMul(ivk).Encode()
	key := crypto.Blake2b256(crypto.OrchardKDFPersonalization, shared[:], out.Epk[:])

	aead, err := chacha20poly1305.New(key[:])
	require.NoError(t, err)
	pt := crypto.CompactPlaintext(n.Recipient.Diversifier, n.Value, n.Rseed)
	sealed := aead.Seal(nil, make([]byte, chacha20poly1305.NonceSize), pt[:], nil)
	assert.Equal(t, sealed[:crypto.CompactCiphertextSize], out.Ciphertext[:])
}

func TestEncryptWithMemo(t *testing.T) {
	n := testNote(t)
	var memo [crypto.MemoSize]byte
	memo[0] = 0xf6

	out, enc, err := n.EncryptWithMemo(memo)
	require.NoError(t, err)
	require.Len(t, enc, crypto.NoteCiphertextSize)
	assert.Equal(t, out.Ciphertext[:], enc[:crypto.CompactCiphertextSize])

	// The recipient opens it with [ivk] epk.
	fvk, _ := accountAddress(t)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	epk, err := pallas.Decode(out.Epk)
	require.NoError(t, err)
	shared := epk.ScalarMul(ivk).Encode()
	key := crypto.Blake2b256(crypto.OrchardKDFPersonalization, shared[:], out.Epk[:])
	aead, err := chacha20poly1305.New(key[:])
	require.NoError(t, err)
	pt, err := aead.Open(nil, make([]byte, chacha20poly1305.NonceSize), enc, nil)
	require.NoError(t, err)
	assert.Equal(t, memo[:], pt[crypto.CompactCiphertextSize:])
}

func TestRedPallas(t *testing.T) {
	sk := SpendingKey([32]byte(mustHex(t, accountSK)))
	ask, err := sk.SpendAuthorizingKey()
	require.NoError(t, err)
	fvk, err := sk.FullViewingKey()
	require.NoError(t, err)
	msg := bytes.Repeat([]byte{0x5a}, 32)

	sig, err := Sign(ask, msg, rand.Reader)
	require.NoError(t, err)
	assert.True(t, Verify(fvk.Ak, msg, sig))

	alpha := field.FvFromUint64(0xfeedface)
	rsig, err := Sign(RandomizeKey(ask, alpha), msg, rand.Reader)
	require.NoError(t, err)
	assert.True(t, Verify(RandomizeVerificationKey(fvk.Ak, alpha), msg, rsig))
	assert.False(t, Verify(fvk.Ak, msg, rsig))

	tampered := sig
	tampered[33] ^= 1
	assert.False(t, Verify(fvk.Ak, msg, tampered))
}
