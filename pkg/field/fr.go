package field

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"

	"github.com/coinbase/kryptology/pkg/core/curves/native"
)

// Fr is an element of the Jubjub scalar field, integers modulo
// r_J = 0x0e7db4ea6533afa906673b0101343b00a6682093ccc81082d0970e5ed6f72cb7.
//
// The value is four little-endian limbs in Montgomery form. The arithmetic is
// a native.FieldArithmetic written the same way as kryptology's BLS12-381
// scalar field, so every operation runs in time independent of the operands.
// The zero value is the field's zero.
type Fr struct {
	v [native.FieldLimbs]uint64
}

// -(r_J^-1) mod 2^64
const frInv = 0x1ba3a358ef788ef9

var frModulus = [native.FieldLimbs]uint64{0xd0970e5ed6f72cb7, 0xa6682093ccc81082, 0x06673b0101343b00, 0x0e7db4ea6533afa9}

var frParams = &native.FieldParams{
	R:       [native.FieldLimbs]uint64{0x25f80bb3b99607d9, 0xf315d62f66b6e750, 0x932514eeeb8814f4, 0x09a6fc6f479155c6},
	R2:      [native.FieldLimbs]uint64{0x67719aa495e57731, 0x51b0cef09ce3fc26, 0x69dab7fac026e9a5, 0x04f6547b8d127688},
	R3:      [native.FieldLimbs]uint64{0xe0d6c6563d830544, 0x323e3883598d0f85, 0xf0fea3004c2e2ba8, 0x05874f84946737ec},
	Modulus: frModulus,
}

var (
	// r_J - 2
	frInvExp = [native.FieldLimbs]uint64{0xd0970e5ed6f72cb5, 0xa6682093ccc81082, 0x06673b0101343b00, 0x0e7db4ea6533afa9}

	// r_J = 3 mod 4, so a^((r_J+1)/4) is a root of every residue.
	frSqrtExp = [native.FieldLimbs]uint64{0xb425c397b5bdcb2e, 0x299a0824f3320420, 0x4199cec0404d0ec0, 0x039f6d3a994cebea}
)

var _ native.FieldArithmetic = frArithmetic{}

type frArithmetic struct{}

func (f frArithmetic) ToMontgomery(out, arg *[native.FieldLimbs]uint64) {
	f.Mul(out, arg, &frParams.R2)
}

func (f frArithmetic) FromMontgomery(out, arg *[native.FieldLimbs]uint64) {
	f.montReduce(out, &[2 * native.FieldLimbs]uint64{arg[0], arg[1], arg[2], arg[3]})
}

func (f frArithmetic) Neg(out, arg *[native.FieldLimbs]uint64) {
	var t [native.FieldLimbs]uint64
	var borrow uint64
	t[0], borrow = bits.Sub64(frModulus[0], arg[0], 0)
	t[1], borrow = bits.Sub64(frModulus[1], arg[1], borrow)
	t[2], borrow = bits.Sub64(frModulus[2], arg[2], borrow)
	t[3], _ = bits.Sub64(frModulus[3], arg[3], borrow)

	// r_J - 0 must map to 0.
	mask := arg[0] | arg[1] | arg[2] | arg[3]
	mask = -((mask | -mask) >> 63)
	out[0] = t[0] & mask
	out[1] = t[1] & mask
	out[2] = t[2] & mask
	out[3] = t[3] & mask
}

func (f frArithmetic) Square(out, arg *[native.FieldLimbs]uint64) {
	f.Mul(out, arg, arg)
}

// Mul is schoolbook multiplication followed by Montgomery reduction.
func (f frArithmetic) Mul(out, arg1, arg2 *[native.FieldLimbs]uint64) {
	var r [2 * native.FieldLimbs]uint64
	for i := 0; i < native.FieldLimbs; i++ {
		var carry uint64
		for j := 0; j < native.FieldLimbs; j++ {
			r[i+j], carry = mac(r[i+j], arg1[i], arg2[j], carry)
		}
		r[i+native.FieldLimbs] = carry
	}
	f.montReduce(out, &r)
}

func (f frArithmetic) Add(out, arg1, arg2 *[native.FieldLimbs]uint64) {
	var t [native.FieldLimbs]uint64
	var carry uint64
	t[0], carry = bits.Add64(arg1[0], arg2[0], 0)
	t[1], carry = bits.Add64(arg1[1], arg2[1], carry)
	t[2], carry = bits.Add64(arg1[2], arg2[2], carry)
	t[3], _ = bits.Add64(arg1[3], arg2[3], carry)
	f.Sub(out, &t, &frModulus)
}

// Sub adds the modulus back under a mask when the difference borrows.
func (f frArithmetic) Sub(out, arg1, arg2 *[native.FieldLimbs]uint64) {
	d0, borrow := bits.Sub64(arg1[0], arg2[0], 0)
	d1, borrow := bits.Sub64(arg1[1], arg2[1], borrow)
	d2, borrow := bits.Sub64(arg1[2], arg2[2], borrow)
	d3, borrow := bits.Sub64(arg1[3], arg2[3], borrow)

	borrow = -borrow
	d0, carry := bits.Add64(d0, frModulus[0]&borrow, 0)
	d1, carry = bits.Add64(d1, frModulus[1]&borrow, carry)
	d2, carry = bits.Add64(d2, frModulus[2]&borrow, carry)
	d3, _ = bits.Add64(d3, frModulus[3]&borrow, carry)

	out[0], out[1], out[2], out[3] = d0, d1, d2, d3
}

func (f frArithmetic) Sqrt(wasSquare *int, out, arg *[native.FieldLimbs]uint64) {
	var z, zz [native.FieldLimbs]uint64
	native.Pow(&z, arg, &frSqrtExp, frParams, f)
	f.Square(&zz, &z)
	*wasSquare = limbsEqual(&zz, arg)
	f.Selectznz(out, out, &z, *wasSquare)
}

func (f frArithmetic) Invert(wasInverted *int, out, arg *[native.FieldLimbs]uint64) {
	var t [native.FieldLimbs]uint64
	native.Pow(&t, arg, &frInvExp, frParams, f)
	*wasInverted = limbsIsZero(arg) ^ 1
	f.Selectznz(out, out, &t, *wasInverted)
}

func (f frArithmetic) FromBytes(out *[native.FieldLimbs]uint64, arg *[native.FieldBytes]byte) {
	out[0] = binary.LittleEndian.Uint64(arg[:8])
	out[1] = binary.LittleEndian.Uint64(arg[8:16])
	out[2] = binary.LittleEndian.Uint64(arg[16:24])
	out[3] = binary.LittleEndian.Uint64(arg[24:])
}

func (f frArithmetic) ToBytes(out *[native.FieldBytes]byte, arg *[native.FieldLimbs]uint64) {
	binary.LittleEndian.PutUint64(out[:8], arg[0])
	binary.LittleEndian.PutUint64(out[8:16], arg[1])
	binary.LittleEndian.PutUint64(out[16:24], arg[2])
	binary.LittleEndian.PutUint64(out[24:], arg[3])
}

// Selectznz sets out to arg1 when choice is 0 and to arg2 when choice is 1.
func (f frArithmetic) Selectznz(out, arg1, arg2 *[native.FieldLimbs]uint64, choice int) {
	b := uint64(-choice)
	out[0] = arg1[0] ^ ((arg1[0] ^ arg2[0]) & b)
	out[1] = arg1[1] ^ ((arg1[1] ^ arg2[1]) & b)
	out[2] = arg1[2] ^ ((arg1[2] ^ arg2[2]) & b)
	out[3] = arg1[3] ^ ((arg1[3] ^ arg2[3]) & b)
}

// montReduce is Algorithm 14.32 of the Handbook of Applied Cryptography.
// r_J < 2^252, so the intermediate result stays below 2 r_J and one
// masked subtraction finishes the reduction.
func (f frArithmetic) montReduce(out *[native.FieldLimbs]uint64, r *[2 * native.FieldLimbs]uint64) {
	t := *r
	var carry2 uint64
	for i := 0; i < native.FieldLimbs; i++ {
		k := t[i] * frInv
		var carry uint64
		_, carry = mac(t[i], k, frModulus[0], 0)
		for j := 1; j < native.FieldLimbs; j++ {
			t[i+j], carry = mac(t[i+j], k, frModulus[j], carry)
		}
		var c1, c2 uint64
		t[i+native.FieldLimbs], c1 = bits.Add64(t[i+native.FieldLimbs], carry, 0)
		t[i+native.FieldLimbs], c2 = bits.Add64(t[i+native.FieldLimbs], carry2, 0)
		carry2 = c1 + c2
	}
	rr := [native.FieldLimbs]uint64{t[4], t[5], t[6], t[7]}
	f.Sub(out, &rr, &frModulus)
}

// mac returns a + b*c + d as (lo, hi).
func mac(a, b, c, d uint64) (uint64, uint64) {
	hi, lo := bits.Mul64(b, c)
	lo, carry := bits.Add64(lo, a, 0)
	hi += carry
	lo, carry = bits.Add64(lo, d, 0)
	hi += carry
	return lo, hi
}

func limbsIsZero(a *[native.FieldLimbs]uint64) int {
	t := a[0] | a[1] | a[2] | a[3]
	return int(((t | -t) >> 63) ^ 1)
}

func limbsEqual(a, b *[native.FieldLimbs]uint64) int {
	d := [native.FieldLimbs]uint64{a[0] ^ b[0], a[1] ^ b[1], a[2] ^ b[2], a[3] ^ b[3]}
	return limbsIsZero(&d)
}

func (a Fr) elem() *native.Field {
	return &native.Field{Value: a.v, Params: frParams, Arithmetic: frArithmetic{}}
}

// FrOne returns the multiplicative identity.
func FrOne() Fr {
	return Fr{v: frParams.R}
}

// FrFromUint64 returns v mod r_J.
func FrFromUint64(v uint64) Fr {
	var r Fr
	frArithmetic{}.ToMontgomery(&r.v, &[native.FieldLimbs]uint64{v})
	return r
}

// FrFromBytes decodes a canonical big-endian encoding.
func FrFromBytes(b [32]byte) (Fr, error) {
	return FrFromLEBytes(reverse32(b))
}

// FrFromLEBytes decodes a canonical little-endian encoding.
func FrFromLEBytes(b [32]byte) (Fr, error) {
	f := Fr{}.elem()
	if _, err := f.SetBytes(&b); err != nil {
		return Fr{}, ErrNonCanonical
	}
	return Fr{v: f.Value}, nil
}

// FrFromWideLE reduces a 512-bit little-endian integer modulo r_J. This is
// ToScalar in the Zcash protocol.
func FrFromWideLE(b [64]byte) Fr {
	f := Fr{}.elem()
	f.SetBytesWide(&b)
	return Fr{v: f.Value}
}

func (a Fr) Add(b Fr) Fr {
	var r Fr
	frArithmetic{}.Add(&r.v, &a.v, &b.v)
	return r
}

func (a Fr) Sub(b Fr) Fr {
	var r Fr
	frArithmetic{}.Sub(&r.v, &a.v, &b.v)
	return r
}

func (a Fr) Mul(b Fr) Fr {
	var r Fr
	frArithmetic{}.Mul(&r.v, &a.v, &b.v)
	return r
}

func (a Fr) Square() Fr {
	return a.Mul(a)
}

func (a Fr) Neg() Fr {
	var r Fr
	frArithmetic{}.Neg(&r.v, &a.v)
	return r
}

// Invert returns a^-1 by Fermat's little theorem; zero maps to zero.
func (a Fr) Invert() Fr {
	var r Fr
	wasInverted := 0
	frArithmetic{}.Invert(&wasInverted, &r.v, &a.v)
	return r
}

func (a Fr) Sqrt() (Fr, error) {
	var r Fr
	wasSquare := 0
	frArithmetic{}.Sqrt(&wasSquare, &r.v, &a.v)
	if wasSquare != 1 {
		return Fr{}, ErrNoSquareRoot
	}
	return r, nil
}

func (a Fr) IsOdd() bool {
	b := a.LEBytes()
	return b[0]&1 == 1
}

func (a Fr) IsZero() bool { return limbsIsZero(&a.v) == 1 }

func (a Fr) Equal(b Fr) bool { return limbsEqual(&a.v, &b.v) == 1 }

// Bytes returns the canonical big-endian encoding.
func (a Fr) Bytes() [32]byte { return reverse32(a.LEBytes()) }

// LEBytes returns the canonical little-endian encoding.
func (a Fr) LEBytes() [32]byte { return a.elem().Bytes() }

func (a Fr) String() string {
	b := a.Bytes()
	return hex.EncodeToString(b[:])
}
