// Package jubjub implements the Jubjub twisted Edwards curve
// -u^2 + v^2 = 1 + d u^2 v^2 over the BLS12-381 scalar field, with
// d = -(10240/10241).
//
// Points are accumulated in extended coordinates (U, V, Z, T1, T2) with
// U/Z = u, V/Z = v and T1*T2 = U*V/Z. The extended Niels form
// (V+U, V-U, Z, 2d*T1*T2) is the precomputed addend for mixed addition.
//
// References:
//   - Zcash protocol specification §5.4.9.3 (Jubjub), §5.4.9.5 (GroupHash^J)
//   - "Twisted Edwards Curves Revisited", Hisil, Wong, Carter, Dawson
package jubjub

import (
	"errors"

	"github.com/suffix-labs/zcash-signer/pkg/field"
)

var (
	// ErrNotInvertible is returned by ToAffine when Z is zero. The group law
	// never reaches such a point from a valid base point.
	ErrNotInvertible   = errors.New("jubjub: Z coordinate is not invertible")
	ErrInvalidEncoding = errors.New("jubjub: invalid point encoding")
)

var (
	edwardsD  = field.MustFqFromHex("2a9318e74bfa2b48f5fd9207e6bd7fd4292d7f6d37579d2601065fd6d6343eb1")
	edwardsD2 = edwardsD.Double()
)

// AffinePoint is a point in affine (u, v) coordinates.
type AffinePoint struct {
	U, V field.Fq
}

// ExtendedPoint is the accumulator form used by doubling and addition.
type ExtendedPoint struct {
	U, V, Z, T1, T2 field.Fq
}

// ExtendedNielsPoint is a precomputed addend.
type ExtendedNielsPoint struct {
	VPlusU, VMinusU, Z, T2D field.Fq
}

// completedPoint is the intermediate ((U:Z), (V:T)) result of doubling and addition.
type completedPoint struct {
	u, v, z, t field.Fq
}

func (c completedPoint) toExtended() ExtendedPoint {
	return ExtendedPoint{
		U:  c.u.Mul(c.t),
		V:  c.v.Mul(c.z),
		Z:  c.z.Mul(c.t),
		T1: c.u,
		T2: c.v,
	}
}

// Identity returns the neutral element (0, 1).
func Identity() ExtendedPoint {
	return ExtendedPoint{V: field.FqOne(), Z: field.FqOne()}
}

func identityNiels() ExtendedNielsPoint {
	return ExtendedNielsPoint{VPlusU: field.FqOne(), VMinusU: field.FqOne(), Z: field.FqOne()}
}

// IsOnCurve checks the affine curve equation.
func (a AffinePoint) IsOnCurve() bool {
	u2, v2 := a.U.Square(), a.V.Square()
	lhs := v2.Sub(u2)
	rhs := field.FqOne().Add(edwardsD.Mul(u2).Mul(v2))
	return lhs.Equal(rhs)
}

func (a AffinePoint) ToExtended() ExtendedPoint {
	return ExtendedPoint{U: a.U, V: a.V, Z: field.FqOne(), T1: a.U, T2: a.V}
}

func (p ExtendedPoint) IsIdentity() bool {
	return p.U.IsZero() && p.V.Equal(p.Z)
}

// Double returns 2p. The formula is complete and never fails.
func (p ExtendedPoint) Double() ExtendedPoint {
	uu := p.U.Square()
	vv := p.V.Square()
	zz2 := p.Z.Square().Double()
	uv2 := p.U.Add(p.V).Square()
	vvPlusUU := vv.Add(uu)
	vvMinusUU := vv.Sub(uu)

	return completedPoint{
		u: uv2.Sub(vvPlusUU),
		v: vvPlusUU,
		z: vvMinusUU,
		t: zz2.Sub(vvMinusUU),
	}.toExtended()
}

func (p ExtendedPoint) ToNiels() ExtendedNielsPoint {
	return ExtendedNielsPoint{
		VPlusU:  p.V.Add(p.U),
		VMinusU: p.V.Sub(p.U),
		Z:       p.Z,
		T2D:     p.T1.Mul(p.T2).Mul(edwardsD2),
	}
}

// AddNiels returns p + q for a precomputed addend q.
func (p ExtendedPoint) AddNiels(q ExtendedNielsPoint) ExtendedPoint {
	a := p.V.Sub(p.U).Mul(q.VMinusU)
	b := p.V.Add(p.U).Mul(q.VPlusU)
	c := p.T1.Mul(p.T2).Mul(q.T2D)
	d := p.Z.Mul(q.Z).Double()

	return completedPoint{
		u: b.Sub(a),
		v: b.Add(a),
		z: d.Add(c),
		t: d.Sub(c),
	}.toExtended()
}

func (p ExtendedPoint) Add(q ExtendedPoint) ExtendedPoint {
	return p.AddNiels(q.ToNiels())
}

func (p ExtendedPoint) Neg() ExtendedPoint {
	return ExtendedPoint{U: p.U.Neg(), V: p.V, Z: p.Z, T1: p.T1.Neg(), T2: p.T2}
}

func (p ExtendedPoint) Sub(q ExtendedPoint) ExtendedPoint {
	return p.Add(q.Neg())
}

// Equal compares projectively: U1*Z2 = U2*Z1 and V1*Z2 = V2*Z1.
func (p ExtendedPoint) Equal(q ExtendedPoint) bool {
	return p.U.Mul(q.Z).Equal(q.U.Mul(p.Z)) && p.V.Mul(q.Z).Equal(q.V.Mul(p.Z))
}

// ToAffine divides U and V by Z.
func (p ExtendedPoint) ToAffine() (AffinePoint, error) {
	if p.Z.IsZero() {
		return AffinePoint{}, ErrNotInvertible
	}
	zInv := p.Z.Invert()
	return AffinePoint{U: p.U.Mul(zInv), V: p.V.Mul(zInv)}, nil
}

func selectNiels(choice int, a, b ExtendedNielsPoint) ExtendedNielsPoint {
	return ExtendedNielsPoint{
		VPlusU:  field.SelectFq(choice, a.VPlusU, b.VPlusU),
		VMinusU: field.SelectFq(choice, a.VMinusU, b.VMinusU),
		Z:       field.SelectFq(choice, a.Z, b.Z),
		T2D:     field.SelectFq(choice, a.T2D, b.T2D),
	}
}

// ScalarMul returns [k]p by double-and-add over all 256 bits, most significant
// first. Each step adds either p or the identity, chosen in constant time.
func (p ExtendedPoint) ScalarMul(k field.Fr) ExtendedPoint {
	return p.mulLE(k.LEBytes())
}

func (p ExtendedPoint) mulLE(scalar [32]byte) ExtendedPoint {
	base := p.ToNiels()
	zero := identityNiels()
	acc := Identity()
	for i := 255; i >= 0; i-- {
		bit := int(scalar[i/8]>>(uint(i)%8)) & 1
		acc = acc.Double()
		acc = acc.AddNiels(selectNiels(bit, zero, base))
	}
	return acc
}

// MulByCofactor returns [8]p.
func (p ExtendedPoint) MulByCofactor() ExtendedPoint {
	return p.Double().Double().Double()
}

// IsSmallOrder reports whether p lies in the torsion subgroup of order 8.
func (p ExtendedPoint) IsSmallOrder() bool {
	return p.MulByCofactor().IsIdentity()
}

// Encode returns repr_J: v little-endian with the parity of u in bit 255.
func (p ExtendedPoint) Encode() [32]byte {
	a, err := p.ToAffine()
	if err != nil {
		return [32]byte{}
	}
	return a.Encode()
}

func (a AffinePoint) Encode() [32]byte {
	out := a.V.LEBytes()
	if a.U.IsOdd() {
		out[31] |= 0x80
	}
	return out
}

// Decode parses repr_J, rejecting non-canonical v and the encoding of u = 0
// with the sign bit set.
func Decode(b [32]byte) (ExtendedPoint, error) {
	a, err := DecodeAffine(b)
	if err != nil {
		return ExtendedPoint{}, err
	}
	return a.ToExtended(), nil
}

func DecodeAffine(b [32]byte) (AffinePoint, error) {
	sign := b[31] >> 7
	b[31] &= 0x7f
	v, err := field.FqFromLEBytes(b)
	if err != nil {
		return AffinePoint{}, ErrInvalidEncoding
	}
	v2 := v.Square()
	// d is not a square, so 1 + d v^2 is never zero.
	u2 := v2.Sub(field.FqOne()).Mul(field.FqOne().Add(edwardsD.Mul(v2)).Invert())
	u, err := u2.Sqrt()
	if err != nil {
		return AffinePoint{}, ErrInvalidEncoding
	}
	if u.IsZero() && sign == 1 {
		return AffinePoint{}, ErrInvalidEncoding
	}
	if u.IsOdd() != (sign == 1) {
		u = u.Neg()
	}
	return AffinePoint{U: u, V: v}, nil
}
