package orchard

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

const (
	spendAuthDomain  = "z.cash:Orchard"
	commitIvkDomain  = "z.cash:Orchard-CommitIvk"
	noteCommitDomain = "z.cash:Orchard-NoteCommit"
	diversifyDomain  = "z.cash:Orchard-gd"
)

var ErrInvalidSpendingKey = errors.New("orchard: spending key yields a zero key component")

var spendAuthGenerator = func() pallas.Point {
	p, err := pallas.HashToCurve([]byte(spendAuthDomain), []byte("G"))
	if err != nil {
		panic(err)
	}
	return p
}()

// SpendAuthGenerator is the RedPallas base point of spend authorization.
func SpendAuthGenerator() pallas.Point { return spendAuthGenerator }

// SpendingKey is a 32-byte Orchard spending key.
type SpendingKey [32]byte

// SpendAuthorizingKey derives ask. It is negated if needed so that
// ak = [ask]G has an even y-coordinate.
func (sk SpendingKey) SpendAuthorizingKey() (field.Fv, error) {
	ask := field.FvFromWideLE(crypto.PRFExpand(sk[:], []byte{0x06}))
	if ask.IsZero() {
		return field.Fv{}, ErrInvalidSpendingKey
	}
	_, y, err := spendAuthGenerator.ScalarMul(ask).ToAffine()
	if err != nil {
		return field.Fv{}, err
	}
	if y.IsOdd() {
		ask = ask.Neg()
	}
	return ask, nil
}

// FullViewingKey derives (ak, nk, rivk).
func (sk SpendingKey) FullViewingKey() (FullViewingKey, error) {
	ask, err := sk.SpendAuthorizingKey()
	if err != nil {
		return FullViewingKey{}, err
	}
	return FullViewingKey{
		Ak:   spendAuthGenerator.ScalarMul(ask),
		Nk:   field.FpFromWideLE(crypto.PRFExpand(sk[:], []byte{0x07})),
		Rivk: field.FvFromWideLE(crypto.PRFExpand(sk[:], []byte{0x08})),
	}, nil
}

// FullViewingKey is the Orchard full viewing key.
type FullViewingKey struct {
	Ak   pallas.Point
	Nk   field.Fp
	Rivk field.Fv
}

// akX returns the x-coordinate of ak as a little-endian integer.
func (f FullViewingKey) akX() [32]byte {
	x, _, err := f.Ak.ToAffine()
	if err != nil {
		return [32]byte{}
	}
	return x.LEBytes()
}

// Bytes encodes the key as repr(ak) || nk || rivk.
func (f FullViewingKey) Bytes() [96]byte {
	var out [96]byte
	ak, nk, rivk := f.Ak.Encode(), f.Nk.LEBytes(), f.Rivk.LEBytes()
	copy(out[:32], ak[:])
	copy(out[32:64], nk[:])
	copy(out[64:], rivk[:])
	return out
}

// IncomingViewingKey is Commit^ivk_rivk(ak.x, nk).
func (f FullViewingKey) IncomingViewingKey() (field.Fv, error) {
	ak, nk := f.akX(), f.Nk.LEBytes()
	bits := make(crypto.Bits, 0, 510)
	bits = bits.AppendBytes(ak[:], 255)
	bits = bits.AppendBytes(nk[:], 255)

	x, err := SinsemillaShortCommit(commitIvkDomain, bits, f.Rivk)
	if err != nil {
		return field.Fv{}, fmt.Errorf("ivk: %w", err)
	}
	// p < q, so the base field element is a canonical scalar.
	ivk, err := field.FvFromLEBytes(x.LEBytes())
	if err != nil {
		return field.Fv{}, err
	}
	if ivk.IsZero() {
		return field.Fv{}, ErrInvalidSpendingKey
	}
	return ivk, nil
}

// viewingKeys returns (dk, ovk) = PRF^expand(rivk, 0x82 || ak.x || nk).
func (f FullViewingKey) viewingKeys() (dk, ovk [32]byte) {
	rivk, ak, nk := f.Rivk.LEBytes(), f.akX(), f.Nk.LEBytes()
	k := crypto.PRFExpand(rivk[:], []byte{0x82}, ak[:], nk[:])
	copy(dk[:], k[:32])
	copy(ovk[:], k[32:])
	return dk, ovk
}

// DiversifierKey is the external diversifier key dk.
func (f FullViewingKey) DiversifierKey() [32]byte {
	dk, _ := f.viewingKeys()
	return dk
}

// OutgoingViewingKey is the external outgoing viewing key.
func (f FullViewingKey) OutgoingViewingKey() [32]byte {
	_, ovk := f.viewingKeys()
	return ovk
}

// Address returns the payment address at diversifier index j.
func (f FullViewingKey) Address(j uint64) (Address, error) {
	var index [crypto.DiversifierSize]byte
	for i := 0; i < 8; i++ {
		index[i] = byte(j >> (8 * uint(i)))
	}
	dk := f.DiversifierKey()
	d, err := crypto.FF1Diversifier(dk[:], index)
	if err != nil {
		return Address{}, err
	}
	ivk, err := f.IncomingViewingKey()
	if err != nil {
		return Address{}, err
	}
	gd, err := DiversifyHash(d)
	if err != nil {
		return Address{}, err
	}
	return Address{Diversifier: d, PkD: gd.ScalarMul(ivk).Encode()}, nil
}
