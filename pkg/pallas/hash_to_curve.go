package pallas

import (
	"errors"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/zcash-signer/pkg/field"
)

// Suffix appended to every domain separation tag, as in the Orchard hash_to_curve.
const xmdSuffix = "-pallas_XMD:BLAKE2b_SSWU_RO_"

// ErrDomainTooLong is returned when dst || suffix does not fit in one length byte.
var ErrDomainTooLong = errors.New("pallas: domain separation tag too long")

// Simplified SWU parameters for the 3-isogenous curve iso-Pallas
// y^2 = x^3 + isoA x + isoB.
var (
	isoA  = field.MustFpFromHex("18354a2eb0ea8c9c49be2d7258370742b74134581a27a59f92bb4b0b657a014b")
	isoB  = field.FpFromUint64(1265)
	swuZ  = field.MustFpFromHex("40000000000000000000000000000000224698fc094cf91b992d30ecfffffff4")
	theta = field.MustFpFromHex("0f7bdb65814179b44647aef782d5cdc851f64fc4dc888857ca330bcc09ac318e")
	// A non-square; multiplying a non-square by it yields a square.
	rootOfUnity = field.MustFpFromHex("2bce74deac30ebda362120830561f81aea322bf2b7bb7584bdad6fabd87ea32f")
)

// Coefficients of the 3-isogeny iso-Pallas -> Pallas.
var isoMapCoeffs = [13]field.Fp{
	field.MustFpFromHex("0e38e38e38e38e38e38e38e38e38e38e4081775473d8375b775f6034aaaaaaab"),
	field.MustFpFromHex("3509afd51872d88e267c7ffa51cf412a0f93b82ee4b994958cf863b02814fb76"),
	field.MustFpFromHex("17329b9ec525375398c7d7ac3d98fd13380af066cfeb6d690eb64faef37ea4f7"),
	field.MustFpFromHex("1c71c71c71c71c71c71c71c71c71c71c8102eea8e7b06eb6eebec06955555580"),
	field.MustFpFromHex("1d572e7ddc099cff5a607fcce0494a799c434ac1c96b6980c47f2ab668bcd71f"),
	field.MustFpFromHex("325669becaecd5d11d13bf2a7f22b105b4abf9fb9a1fc81c2aa3af1eae5b6604"),
	field.MustFpFromHex("1a12f684bda12f684bda12f684bda12f7642b01ad461bad25ad985b5e38e38e4"),
	field.MustFpFromHex("1a84d7ea8c396c47133e3ffd28e7a09507c9dc17725cca4ac67c31d8140a7dbb"),
	field.MustFpFromHex("3fb98ff0d2ddcadd303216cce1db9ff11765e924f745937802e2be87d225b234"),
	field.MustFpFromHex("025ed097b425ed097b425ed097b425ed0ac03e8e134eb3e493e53ab371c71c4f"),
	field.MustFpFromHex("0c02c5bcca0e6b7f0790bfb3506defb65941a3a4a97aa1b35a28279b1d1b42ae"),
	field.MustFpFromHex("17033d3c60c68173573b3d7f7d681310d976bbfabbc5661d4d90ab820b12320a"),
	field.MustFpFromHex("40000000000000000000000000000000224698fc094cf91b992d30ecfffffde5"),
}

// HashToField expands msg under dst with expand_message_xmd over BLAKE2b-512
// and reduces the two 64-byte blocks into base field elements.
func HashToField(dst, msg []byte) (field.Fp, field.Fp, error) {
	if len(dst)+len(xmdSuffix) > 255 {
		return field.Fp{}, field.Fp{}, ErrDomainTooLong
	}
	dstPrime := make([]byte, 0, len(dst)+len(xmdSuffix)+1)
	dstPrime = append(dstPrime, dst...)
	dstPrime = append(dstPrime, xmdSuffix...)
	dstPrime = append(dstPrime, byte(len(dst)+len(xmdSuffix)))

	h := blake2b.New512()
	h.Write(make([]byte, h.BlockSize()))
	h.Write(msg)
	// l_i_b_str = I2OSP(128, 2), then I2OSP(0, 1)
	h.Write([]byte{0, 128, 0})
	h.Write(dstPrime)
	b0 := h.Sum(nil)

	h.Reset()
	h.Write(b0)
	h.Write([]byte{1})
	h.Write(dstPrime)
	b1 := h.Sum(nil)

	mix := make([]byte, len(b0))
	for i := range mix {
		mix[i] = b0[i] ^ b1[i]
	}
	h.Reset()
	h.Write(mix)
	h.Write([]byte{2})
	h.Write(dstPrime)
	b2 := h.Sum(nil)

	return field.FpFromWide([64]byte(b1)), field.FpFromWide([64]byte(b2)), nil
}

// MapToCurveSimpleSWU maps u to a point on iso-Pallas. The result is in
// Jacobian form (numX*div, y*div^3, div) so no inversion of the denominator is
// needed for the output itself.
func MapToCurveSimpleSWU(u field.Fp) Point {
	zu2 := swuZ.Mul(u.Square())
	ta := zu2.Square().Add(zu2)
	numX1 := isoB.Mul(ta.Add(field.FpOne()))

	// ta = 0 happens only for u = 0; the denominator then uses Z instead of -ta.
	var c int
	if ta.IsZero() {
		c = 1
	}
	div := isoA.Mul(field.SelectFp(c, ta.Neg(), swuZ))
	div2 := div.Square()
	div3 := div2.Mul(div)

	numGx1 := numX1.Square().Add(isoA.Mul(div2)).Mul(numX1).Add(isoB.Mul(div3))
	numX2 := zu2.Mul(numX1)

	gx1 := numGx1.Mul(div3.Invert())
	y1, err := gx1.Sqrt()
	gx1Square := err == nil
	if !gx1Square {
		// gx1 * rootOfUnity is then a square; its root feeds the x2 branch.
		y1, _ = rootOfUnity.Mul(gx1).Sqrt()
	}
	y2 := theta.Mul(zu2).Mul(u).Mul(y1)

	numX, y := numX1, y1
	if !gx1Square {
		numX, y = numX2, y2
	}
	if u.IsOdd() != y.IsOdd() {
		y = y.Neg()
	}
	return Point{X: numX.Mul(div), Y: y.Mul(div3), Z: div}
}

// IsoMap sends a point on iso-Pallas to Pallas, staying in Jacobian form.
func IsoMap(p Point) Point {
	c := &isoMapCoeffs
	z2 := p.Z.Square()
	z3 := z2.Mul(p.Z)
	z4 := z2.Square()
	z6 := z3.Square()

	numX := c[0].Mul(p.X).Add(c[1].Mul(z2)).Mul(p.X).Add(c[2].Mul(z4)).Mul(p.X).Add(c[3].Mul(z6))
	divX := z2.Mul(p.X).Add(c[4].Mul(z4)).Mul(p.X).Add(c[5].Mul(z6))
	numY := c[6].Mul(p.X).Add(c[7].Mul(z2)).Mul(p.X).Add(c[8].Mul(z4)).Mul(p.X).Add(c[9].Mul(z6)).Mul(p.Y)
	divY := p.X.Add(c[10].Mul(z2)).Mul(p.X).Add(c[11].Mul(z4)).Mul(p.X).Add(c[12].Mul(z6)).Mul(z3)

	zo := divX.Mul(divY)
	return Point{
		X: numX.Mul(divY).Mul(zo),
		Y: numY.Mul(divX).Mul(zo).Mul(zo),
		Z: zo,
	}
}

// HashToCurve deterministically maps (dst, msg) to a Pallas point.
func HashToCurve(dst, msg []byte) (Point, error) {
	f0, f1, err := HashToField(dst, msg)
	if err != nil {
		return Point{}, err
	}
	q, err := Add(MapToCurveSimpleSWU(f0), MapToCurveSimpleSWU(f1))
	if err != nil {
		return Point{}, err
	}
	return IsoMap(q), nil
}
