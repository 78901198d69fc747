package sapling

import (
	"github.com/dchest/blake2s"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

// ExpandedSpendingKey is (ask, nsk, ovk).
type ExpandedSpendingKey struct {
	Ask field.Fr
	Nsk field.Fr
	Ovk [32]byte
}

// ExpandSpendingKey derives the expanded key of a 32-byte spending key.
func ExpandSpendingKey(sk [32]byte) ExpandedSpendingKey {
	ovk := crypto.PRFExpand(sk[:], []byte{0x02})
	return ExpandedSpendingKey{
		Ask: field.FrFromWideLE(crypto.PRFExpand(sk[:], []byte{0x00})),
		Nsk: field.FrFromWideLE(crypto.PRFExpand(sk[:], []byte{0x01})),
		Ovk: [32]byte(ovk[:32]),
	}
}

// FullViewingKey returns (ak, nk, ovk) for k.
func (k ExpandedSpendingKey) FullViewingKey() FullViewingKey {
	return FullViewingKey{
		Ak:  spendAuthGenerator.ScalarMul(k.Ask),
		Nk:  proofGenerationGenerator.ScalarMul(k.Nsk),
		Ovk: k.Ovk,
	}
}

// FullViewingKey is the Sapling full viewing key.
type FullViewingKey struct {
	Ak  jubjub.ExtendedPoint
	Nk  jubjub.ExtendedPoint
	Ovk [32]byte
}

// Bytes encodes the key as repr(ak) || repr(nk) || ovk.
func (f FullViewingKey) Bytes() [96]byte {
	var out [96]byte
	ak, nk := f.Ak.Encode(), f.Nk.Encode()
	copy(out[:32], ak[:])
	copy(out[32:64], nk[:])
	copy(out[64:], f.Ovk[:])
	return out
}

// IncomingViewingKey is CRH^ivk(repr(ak), repr(nk)) truncated to 251 bits.
func (f FullViewingKey) IncomingViewingKey() field.Fr {
	h, err := blake2s.New(&blake2s.Config{Size: 32, Person: []byte(CRHIvkPersonalization)})
	if err != nil {
		panic(err)
	}
	ak, nk := f.Ak.Encode(), f.Nk.Encode()
	h.Write(ak[:])
	h.Write(nk[:])
	var ivk [32]byte
	copy(ivk[:], h.Sum(nil))
	ivk[31] &= 0x07

	// 251 bits are always below r.
	s, err := field.FrFromLEBytes(ivk)
	if err != nil {
		panic(err)
	}
	return s
}

// Address returns the payment address of f at diversifier d.
func (f FullViewingKey) Address(d Diversifier) (PaymentAddress, error) {
	gd, err := DiversifyHash(d)
	if err != nil {
		return PaymentAddress{}, err
	}
	return PaymentAddress{
		Diversifier: d,
		PkD:         gd.ScalarMul(f.IncomingViewingKey()).Encode(),
	}, nil
}
