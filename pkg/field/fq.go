package field

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Fq is an element of the Jubjub base field, which is the scalar field of BLS12-381.
type Fq struct {
	e fr.Element
}

// FqOne returns the multiplicative identity.
func FqOne() Fq {
	var r Fq
	r.e.SetOne()
	return r
}

// FqFromUint64 returns v as a field element.
func FqFromUint64(v uint64) Fq {
	var r Fq
	r.e.SetUint64(v)
	return r
}

// FqFromBytes decodes a canonical big-endian encoding.
func FqFromBytes(b [32]byte) (Fq, error) {
	var r Fq
	if err := r.e.SetBytesCanonical(b[:]); err != nil {
		return Fq{}, ErrNonCanonical
	}
	return r, nil
}

// FqFromLEBytes decodes a canonical little-endian encoding.
func FqFromLEBytes(b [32]byte) (Fq, error) {
	return FqFromBytes(reverse32(b))
}

// FqFromWide reduces a 512-bit big-endian integer modulo q.
func FqFromWide(b [64]byte) Fq {
	var r Fq
	r.e.SetBytes(b[:])
	return r
}

// MustFqFromHex parses a big-endian hex constant and panics on failure.
func MustFqFromHex(s string) Fq {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		panic("field: bad Fq constant " + s)
	}
	r, err := FqFromBytes([32]byte(raw))
	if err != nil {
		panic("field: bad Fq constant " + s)
	}
	return r
}

func (a Fq) Add(b Fq) Fq {
	var r Fq
	r.e.Add(&a.e, &b.e)
	return r
}

func (a Fq) Sub(b Fq) Fq {
	var r Fq
	r.e.Sub(&a.e, &b.e)
	return r
}

func (a Fq) Mul(b Fq) Fq {
	var r Fq
	r.e.Mul(&a.e, &b.e)
	return r
}

func (a Fq) Square() Fq {
	var r Fq
	r.e.Square(&a.e)
	return r
}

func (a Fq) Double() Fq {
	var r Fq
	r.e.Double(&a.e)
	return r
}

func (a Fq) Neg() Fq {
	var r Fq
	r.e.Neg(&a.e)
	return r
}

// Invert returns a^-1, or zero when a is zero.
func (a Fq) Invert() Fq {
	var r Fq
	r.e.Inverse(&a.e)
	return r
}

// Sqrt returns a square root of a. Which of the two roots is returned is not
// specified; callers that care about the sign must fix it with IsOdd.
func (a Fq) Sqrt() (Fq, error) {
	var r Fq
	if r.e.Sqrt(&a.e) == nil {
		return Fq{}, ErrNoSquareRoot
	}
	return r, nil
}

// IsOdd reports whether the canonical integer representative is odd.
func (a Fq) IsOdd() bool {
	b := a.e.Bytes()
	return b[31]&1 == 1
}

func (a Fq) IsZero() bool { return a.e.IsZero() }

func (a Fq) Equal(b Fq) bool { return a.e.Equal(&b.e) }

// Bytes returns the canonical big-endian encoding.
func (a Fq) Bytes() [32]byte { return a.e.Bytes() }

// LEBytes returns the canonical little-endian encoding.
func (a Fq) LEBytes() [32]byte { return reverse32(a.e.Bytes()) }

func (a Fq) String() string {
	b := a.Bytes()
	return hex.EncodeToString(b[:])
}

// SelectFq returns a when choice is 0 and b when choice is 1, in constant time.
func SelectFq(choice int, a, b Fq) Fq {
	var r Fq
	r.e.Select(choice, &a.e, &b.e)
	return r
}
