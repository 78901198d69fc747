// Package pallas implements the Pallas curve y^2 = x^3 + 5 in Jacobian
// coordinates, together with the hash-to-curve construction Orchard uses to
// derive its fixed generators.
//
// A Jacobian point (X, Y, Z) stands for the affine point (X/Z^2, Y/Z^3). The
// identity is any point with Z = 0.
//
// References:
//   - Zcash protocol specification §5.4.9.6 (Pallas), §5.4.9.8 (GroupHash^P)
//   - add-2007-bl and dbl-2009-l from the Explicit-Formulas Database
package pallas

import (
	"errors"

	"github.com/suffix-labs/zcash-signer/pkg/field"
)

var (
	// ErrDegenerateAddition is returned by Add when both operands share the same
	// affine x-coordinate. add-2007-bl is undefined there; Sum handles that case.
	ErrDegenerateAddition = errors.New("pallas: addition of points with equal x-coordinate")

	ErrIdentity        = errors.New("pallas: point at infinity has no affine form")
	ErrInvalidEncoding = errors.New("pallas: invalid point encoding")
	ErrNotOnCurve      = errors.New("pallas: point is not on the curve")
)

var curveB = field.FpFromUint64(5)

// Point is a Pallas point in Jacobian coordinates.
type Point struct {
	X, Y, Z field.Fp
}

// Identity returns the point at infinity.
func Identity() Point {
	return Point{X: field.FpOne(), Y: field.FpOne()}
}

// Generator returns the conventional base point (-1, 2).
func Generator() Point {
	return Point{X: field.FpOne().Neg(), Y: field.FpFromUint64(2), Z: field.FpOne()}
}

// FromAffine builds a point from affine coordinates, checking the curve equation.
func FromAffine(x, y field.Fp) (Point, error) {
	p := Point{X: x, Y: y, Z: field.FpOne()}
	if !p.IsOnCurve() {
		return Point{}, ErrNotOnCurve
	}
	return p, nil
}

func (p Point) IsIdentity() bool { return p.Z.IsZero() }

// IsOnCurve checks Y^2 = X^3 + 5 Z^6. The identity is on the curve.
func (p Point) IsOnCurve() bool {
	if p.IsIdentity() {
		return true
	}
	z2 := p.Z.Square()
	z6 := z2.Square().Mul(z2)
	rhs := p.X.Square().Mul(p.X).Add(curveB.Mul(z6))
	return p.Y.Square().Equal(rhs)
}

// Add returns a + b using add-2007-bl.
//
// Identity operands are returned as-is. When H = U2 - U1 is zero (a = b or
// a = -b) the formula would silently produce the identity, so Add reports
// ErrDegenerateAddition instead.
func Add(a, b Point) (Point, error) {
	if a.IsIdentity() {
		return b, nil
	}
	if b.IsIdentity() {
		return a, nil
	}
	sum, h, _ := addJacobian(a, b)
	if h.IsZero() {
		return Point{}, ErrDegenerateAddition
	}
	return sum, nil
}

// addJacobian evaluates add-2007-bl and also returns H and R so callers can
// detect the degenerate cases.
func addJacobian(a, b Point) (sum Point, h, r field.Fp) {
	z1z1 := a.Z.Square()
	z2z2 := b.Z.Square()
	u1 := a.X.Mul(z2z2)
	u2 := b.X.Mul(z1z1)
	s1 := a.Y.Mul(z2z2).Mul(b.Z)
	s2 := b.Y.Mul(z1z1).Mul(a.Z)

	h = u2.Sub(u1)
	i := h.Double().Square()
	j := h.Mul(i)
	r = s2.Sub(s1).Double()
	v := u1.Mul(i)

	x3 := r.Square().Sub(j).Sub(v.Double())
	y3 := r.Mul(v.Sub(x3)).Sub(s1.Mul(j).Double())
	z3 := a.Z.Add(b.Z).Square().Sub(z1z1).Sub(z2z2).Mul(h)
	return Point{X: x3, Y: y3, Z: z3}, h, r
}

// Double returns 2p using dbl-2009-l (a = 0).
func (p Point) Double() Point {
	a := p.X.Square()
	b := p.Y.Square()
	c := b.Square()
	d := p.X.Add(b).Square().Sub(a).Sub(c).Double()
	e := a.Double().Add(a)
	f := e.Square()

	x3 := f.Sub(d.Double())
	y3 := e.Mul(d.Sub(x3)).Sub(c.Double().Double().Double())
	z3 := p.Y.Mul(p.Z).Double()
	return Point{X: x3, Y: y3, Z: z3}
}

// Sum is the complete addition law. It always evaluates both the addition
// and the doubling formula and picks the result with constant-time selects,
// so its running time does not depend on the operands.
//
// With H = 0 and R != 0 (a = -b) add-2007-bl already yields Z3 = 0, the
// identity. With H = R = 0 (a = b) the doubling is taken instead.
func Sum(a, b Point) Point {
	sum, h, r := addJacobian(a, b)
	sameX := h.IsZeroChoice()
	sameY := r.IsZeroChoice()
	out := selectPoint(sameX&sameY, sum, a.Double())
	out = selectPoint(b.Z.IsZeroChoice(), out, a)
	return selectPoint(a.Z.IsZeroChoice(), out, b)
}

func (p Point) Neg() Point {
	return Point{X: p.X, Y: p.Y.Neg(), Z: p.Z}
}

// Equal compares two points up to the Jacobian equivalence.
func (p Point) Equal(q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	pz2, qz2 := p.Z.Square(), q.Z.Square()
	if !p.X.Mul(qz2).Equal(q.X.Mul(pz2)) {
		return false
	}
	return p.Y.Mul(qz2).Mul(q.Z).Equal(q.Y.Mul(pz2).Mul(p.Z))
}

// ScalarMul returns [k]p. Every bit performs a doubling and a complete
// addition, and the result is chosen with a constant-time select.
func (p Point) ScalarMul(k field.Fv) Point {
	bits := k.LEBytes()
	acc := Identity()
	for i := 255; i >= 0; i-- {
		acc = acc.Double()
		sum := Sum(acc, p)
		acc = selectPoint(int(bits[i/8]>>(uint(i)%8))&1, acc, sum)
	}
	return acc
}

func selectPoint(choice int, a, b Point) Point {
	return Point{
		X: field.SelectFp(choice, a.X, b.X),
		Y: field.SelectFp(choice, a.Y, b.Y),
		Z: field.SelectFp(choice, a.Z, b.Z),
	}
}

// ToAffine divides out Z.
func (p Point) ToAffine() (x, y field.Fp, err error) {
	if p.IsIdentity() {
		return field.Fp{}, field.Fp{}, ErrIdentity
	}
	zInv := p.Z.Invert()
	zInv2 := zInv.Square()
	return p.X.Mul(zInv2), p.Y.Mul(zInv2).Mul(zInv), nil
}

// Encode returns repr_P: x little-endian with the parity of y in bit 255.
// The identity encodes as 32 zero bytes.
func (p Point) Encode() [32]byte {
	x, y, err := p.ToAffine()
	if err != nil {
		return [32]byte{}
	}
	out := x.LEBytes()
	if y.IsOdd() {
		out[31] |= 0x80
	}
	return out
}

// Decode parses repr_P.
func Decode(b [32]byte) (Point, error) {
	sign := b[31] >> 7
	b[31] &= 0x7f
	x, err := field.FpFromLEBytes(b)
	if err != nil {
		return Point{}, ErrInvalidEncoding
	}
	if x.IsZero() {
		// 5 is not a square mod p, so no affine point has x = 0.
		if sign != 0 {
			return Point{}, ErrInvalidEncoding
		}
		return Identity(), nil
	}
	y, err := x.Square().Mul(x).Add(curveB).Sqrt()
	if err != nil {
		return Point{}, ErrInvalidEncoding
	}
	if y.IsOdd() != (sign == 1) {
		y = y.Neg()
	}
	return Point{X: x, Y: y, Z: field.FpOne()}, nil
}
