package keys

import (
	"encoding/binary"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
)

// ZIP 32 shielded derivation path m/32'/coin'/account'.
const zip32Purpose = 32

// PRF^expand domain separators used by ZIP 32.
const (
	saplingDkTag       = 0x10
	saplingChildTag    = 0x11
	saplingChildAskTag = 0x13
	saplingChildNskTag = 0x14
	saplingChildOvkTag = 0x15
	saplingChildDkTag  = 0x16
	orchardChildTag    = 0x81
)

// SaplingExtendedKey is a Sapling extended spending key without the
// fingerprint and depth metadata, which the signer never serializes.
type SaplingExtendedKey struct {
	Key       sapling.ExpandedSpendingKey
	Dk        sapling.DiversifierKey
	ChainCode [32]byte
}

// SaplingMaster derives the ZIP 32 Sapling master key of seed.
func SaplingMaster(seed []byte) SaplingExtendedKey {
	i := crypto.Blake2b512(crypto.SaplingMasterPersonalization, seed)
	dk := crypto.PRFExpand(i[:32], []byte{saplingDkTag})
	return SaplingExtendedKey{
		Key:       sapling.ExpandSpendingKey([32]byte(i[:32])),
		Dk:        sapling.DiversifierKey([32]byte(dk[:32])),
		ChainCode: [32]byte(i[32:]),
	}
}

// HardenedChild derives the hardened child at index (the hardened bit is
// added here).
func (k SaplingExtendedKey) HardenedChild(index uint32) SaplingExtendedKey {
	ask, nsk := k.Key.Ask.LEBytes(), k.Key.Nsk.LEBytes()
	var i [4]byte
	binary.LittleEndian.PutUint32(i[:], index|hardenedOffset)

	sum := crypto.PRFExpand(k.ChainCode[:], []byte{saplingChildTag}, ask[:], nsk[:], k.Key.Ovk[:], k.Dk[:], i[:])
	il := sum[:32]

	ovk := crypto.PRFExpand(il, []byte{saplingChildOvkTag}, k.Key.Ovk[:])
	dk := crypto.PRFExpand(il, []byte{saplingChildDkTag}, k.Dk[:])
	return SaplingExtendedKey{
		Key: sapling.ExpandedSpendingKey{
			Ask: field.FrFromWideLE(crypto.PRFExpand(il, []byte{saplingChildAskTag})).Add(k.Key.Ask),
			Nsk: field.FrFromWideLE(crypto.PRFExpand(il, []byte{saplingChildNskTag})).Add(k.Key.Nsk),
			Ovk: [32]byte(ovk[:32]),
		},
		Dk:        sapling.DiversifierKey([32]byte(dk[:32])),
		ChainCode: [32]byte(sum[32:]),
	}
}

// OrchardExtendedKey is an Orchard extended spending key.
type OrchardExtendedKey struct {
	SpendingKey orchard.SpendingKey
	ChainCode   [32]byte
}

// OrchardMaster derives the ZIP 32 Orchard master key of seed.
func OrchardMaster(seed []byte) OrchardExtendedKey {
	i := crypto.Blake2b512(crypto.OrchardMasterPersonalization, seed)
	return OrchardExtendedKey{
		SpendingKey: orchard.SpendingKey([32]byte(i[:32])),
		ChainCode:   [32]byte(i[32:]),
	}
}

// HardenedChild derives the hardened child at index. Orchard only defines
// hardened derivation.
func (k OrchardExtendedKey) HardenedChild(index uint32) OrchardExtendedKey {
	var i [4]byte
	binary.LittleEndian.PutUint32(i[:], index|hardenedOffset)
	sum := crypto.PRFExpand(k.ChainCode[:], []byte{orchardChildTag}, k.SpendingKey[:], i[:])
	return OrchardExtendedKey{
		SpendingKey: orchard.SpendingKey([32]byte(sum[:32])),
		ChainCode:   [32]byte(sum[32:]),
	}
}
