package keys

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func counting(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func leHex(s field.Fr) string {
	b := s.LEBytes()
	return hex.EncodeToString(b[:])
}

func TestSaplingDerivation(t *testing.T) {
	m := SaplingMaster(counting(32))
	acct := m.HardenedChild(zip32Purpose).HardenedChild(CoinTypeMainnet)

	tests := []struct {
		name                     string
		key                      SaplingExtendedKey
		ask, nsk, ovk, dk, chain string
	}{
		{
			name:  "m",
			key:   m,
			ask:   "b6c00c93d36032b9a268e99e86a860776560bf0e83c1a10b51f607c954742506",
			nsk:   "8204ede83b2f1fbd84f9b45d7f996e2ebd0a030ad243b48ed39f748a8821ea06",
			ovk:   "395884890323b9d4933c021db89bcf767df21977b2ff0683848321a4df4afb21",
			dk:    "77c17cb75b7796afb39f0f3e91c924607da56fa9a20e283509bc8a3ef996a172",
			chain: "d0947c4b03bf72a37ab44f72276d1cf3fdcd7ebf3e73348b7e550d752018668e",
		},
		{
			name:  "m/32'/133'/0'",
			key:   acct.HardenedChild(0),
			ask:   "8d95a5b73a32116d11e2d392ea19a8de2b9b587a9a1995d5d7fd486026d6f50b",
			nsk:   "9f9f48d2797880b4ac760300578b8b99c57056a1aa5039aa103274979a1c160c",
			ovk:   "8ee82c943548d4e33f4fa307aab41c0b04851a21dbbc1592886b6da8b2c6be6d",
			dk:    "8f7c07fa1a2daf10cde137eff57d58f12f1fd9f8be045867249b549f05a90040",
			chain: "4e5a798fd0df6bc2b1238cef57956ef35528b87a4b26ca3eeeb28b108aa0ae92",
		},
		{
			name:  "m/32'/133'/1'",
			key:   acct.HardenedChild(1),
			ask:   "1958fca13501c7d69c98b216daac75dbdc55cfec4b7990fd9d125d2f5f9ed603",
			nsk:   "248b84b0c4640ab52fbed8b7263c85bad59cf17506a3ed78c9c683d7e6de7800",
			ovk:   "2a6bf11b9c6f0e29de42561cde1e991bd5c081326848ad9e86faba40950cb4ea",
			dk:    "d0c13a68318b3762ece890782fcfdcb57f9d85429f316ef2003df564f147b28a",
			chain: "39d1ca658d5f5fc41b6b0ec7faa6a4b1fdfdbfc8411ddc456d5fe0ed2744b587",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ask, leHex(tt.key.Key.Ask))
			assert.Equal(t, tt.nsk, leHex(tt.key.Key.Nsk))
			assert.Equal(t, tt.ovk, hex.EncodeToString(tt.key.Key.Ovk[:]))
			assert.Equal(t, tt.dk, hex.EncodeToString(tt.key.Dk[:]))
			assert.Equal(t, tt.chain, hex.EncodeToString(tt.key.ChainCode[:]))
		})
	}
}

func TestOrchardDerivation(t *testing.T) {
	m := OrchardMaster(counting(32))
	assert.Equal(t, "7eee3c1017870990a3dd6891b82f80be8976c1e7dc20d60817a5e88e8b2cd4b8", hex.EncodeToString(m.SpendingKey[:]))
	assert.Equal(t, "ab8b7a00509ef20e469b5292b61d474b7cffcb1657924cda720250ae40526677", hex.EncodeToString(m.ChainCode[:]))

	acct := m.HardenedChild(zip32Purpose).HardenedChild(CoinTypeMainnet)
	tests := []struct {
		account uint32
		sk      string
	}{
		{0, "b67d8d87cab9189500afb45dbca9f92c924c1de9d9ee1451be4a78313cb223b4"},
		{1, "9ebd530c8a67b82fda09585eb0922625d1914b30233aa37fd3c2eaf78d17536f"},
	}
	for _, tt := range tests {
		k := acct.HardenedChild(tt.account)
		assert.Equal(t, tt.sk, hex.EncodeToString(k.SpendingKey[:]), "account %d", tt.account)
	}
}

func TestBIP32(t *testing.T) {
	// BIP 32 test vector 1.
	m, err := bip32Master(mustHex(t, "000102030405060708090a0b0c0d0e0f"))
	require.NoError(t, err)
	pub := btcec.PrivKeyFromScalar(&m.key).PubKey().SerializeCompressed()
	assert.Equal(t, "0339a36013301597daef41fbe593a02cc513d0b55527ec2df1050e2e8ff49c85c2", hex.EncodeToString(pub))

	child, err := m.child(0 | hardenedOffset)
	require.NoError(t, err)
	pub = btcec.PrivKeyFromScalar(&child.key).PubKey().SerializeCompressed()
	assert.Equal(t, "035a784662a4a20a65bf6aab9ae98a6c068a81c52e4b032c0fb5400c706cfccc56", hex.EncodeToString(pub))

	tests := []struct {
		account uint32
		secret  string
	}{
		{0, "7000d951ef60ebf4a845b110ae60d3238e9549d45107606049cf792017cb86a0"},
		{1, "c64c52fc263fedd2395699d4ad8e258b7bf288c3db4d0527f4eea383958c202d"},
	}
	for _, tt := range tests {
		secret, err := transparentSecret(counting(64), CoinTypeMainnet, tt.account)
		require.NoError(t, err)
		assert.Equal(t, tt.secret, hex.EncodeToString(secret[:]), "account %d", tt.account)
	}
}

func TestSeedProvider(t *testing.T) {
	p, err := NewSeedProvider(counting(64), CoinTypeMainnet)
	require.NoError(t, err)

	k, err := p.AccountKeys(0)
	require.NoError(t, err)
	assert.Equal(t, "719de504e969b0fd078bdcdefff4f4ef43e3f117458e9b84e9c194541af31707", leHex(k.Sapling.Ask))
	assert.Equal(t, "248afc7f052906c84af27b10ebb2f112a72227b53925da4775cf65d2d08ec801", leHex(k.Sapling.Nsk))
	assert.Equal(t, "038d000fb68b15e85dea58ae39707d592d548a66a52cb135663210df6e8140ba", hex.EncodeToString(k.Sapling.Ovk[:]))
	assert.Equal(t, "cce666bf5cbede570dc1ca3a6b8cc200e9042fc52797993b83e104a09c417e2b", hex.EncodeToString(k.SaplingDk[:]))
	assert.Equal(t, "383ae1f57c28be84427294433897f0031f9c56a97fef90d969fd12ff371598ed", hex.EncodeToString(k.Orchard[:]))
	assert.Equal(t, "7000d951ef60ebf4a845b110ae60d3238e9549d45107606049cf792017cb86a0", hex.EncodeToString(k.Transparent[:]))

	k.Zeroize()
	assert.True(t, k.Sapling.Ask.IsZero())
	assert.True(t, k.Sapling.Nsk.IsZero())
	assert.Equal(t, sapling.DiversifierKey{}, k.SaplingDk)
	assert.Equal(t, [32]byte{}, k.Transparent)

	p.Close()
	assert.Equal(t, make([]byte, 64), p.seed)
}

func TestNewSeedProviderRejectsLength(t *testing.T) {
	for _, n := range []int{0, 31, 253} {
		_, err := NewSeedProvider(make([]byte, n), CoinTypeMainnet)
		assert.ErrorIs(t, err, ErrSeedLength, "length %d", n)
	}
}

func TestMnemonicProvider(t *testing.T) {
	const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	p, err := NewMnemonicProvider(mnemonic, "TREZOR", CoinTypeMainnet)
	require.NoError(t, err)
	// BIP 39 reference seed of the mnemonic with passphrase "TREZOR".
	assert.Equal(t, "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04", hex.EncodeToString(p.seed))

	_, err = NewMnemonicProvider("abandon abandon abandon", "", CoinTypeMainnet)
	assert.Error(t, err)
}
