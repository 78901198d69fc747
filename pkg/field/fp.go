package field

import (
	"encoding/hex"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
)

// Fp is an element of the Pallas base field,
// p = 0x40000000000000000000000000000000224698fc094cf91b992d30ed00000001.
type Fp struct {
	e fp.Fp
}

func FpOne() Fp {
	var r Fp
	r.e.SetOne()
	return r
}

func FpFromUint64(v uint64) Fp {
	var r Fp
	r.e.SetUint64(v)
	return r
}

// FpFromBytes decodes a canonical big-endian encoding.
func FpFromBytes(b [32]byte) (Fp, error) {
	return FpFromLEBytes(reverse32(b))
}

// FpFromLEBytes decodes a canonical little-endian encoding.
func FpFromLEBytes(b [32]byte) (Fp, error) {
	var r Fp
	if _, err := r.e.SetBytes(&b); err != nil {
		return Fp{}, ErrNonCanonical
	}
	return r, nil
}

// FpFromWide reduces a 512-bit big-endian integer modulo p, as hash_to_field does.
func FpFromWide(b [64]byte) Fp {
	le := reverse64(b)
	var r Fp
	r.e.SetBytesWide(&le)
	return r
}

// FpFromWideLE reduces a 512-bit little-endian integer modulo p (ToBase).
func FpFromWideLE(b [64]byte) Fp {
	var r Fp
	r.e.SetBytesWide(&b)
	return r
}

// MustFpFromHex parses a big-endian hex constant and panics on failure.
func MustFpFromHex(s string) Fp {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		panic("field: bad Fp constant " + s)
	}
	r, err := FpFromBytes([32]byte(raw))
	if err != nil {
		panic("field: bad Fp constant " + s)
	}
	return r
}

func (a Fp) Add(b Fp) Fp {
	var r Fp
	r.e.Add(&a.e, &b.e)
	return r
}

func (a Fp) Sub(b Fp) Fp {
	var r Fp
	r.e.Sub(&a.e, &b.e)
	return r
}

func (a Fp) Mul(b Fp) Fp {
	var r Fp
	r.e.Mul(&a.e, &b.e)
	return r
}

func (a Fp) Square() Fp {
	var r Fp
	r.e.Square(&a.e)
	return r
}

func (a Fp) Double() Fp {
	var r Fp
	r.e.Double(&a.e)
	return r
}

func (a Fp) Neg() Fp {
	var r Fp
	r.e.Neg(&a.e)
	return r
}

// Invert returns a^-1, or zero when a is zero.
func (a Fp) Invert() Fp {
	var r Fp
	if _, ok := r.e.Invert(&a.e); !ok {
		return Fp{}
	}
	return r
}

// Sqrt returns a square root of a, using Tonelli-Shanks since p-1 has a large
// power of two.
func (a Fp) Sqrt() (Fp, error) {
	var r Fp
	if _, ok := r.e.Sqrt(&a.e); !ok {
		return Fp{}, ErrNoSquareRoot
	}
	return r, nil
}

// IsSquare reports whether a is zero or a quadratic residue.
func (a Fp) IsSquare() bool {
	_, err := a.Sqrt()
	return err == nil
}

func (a Fp) IsOdd() bool { return a.e.IsOdd() }

func (a Fp) IsZero() bool { return a.e.IsZero() }

// IsZeroChoice returns 1 when a is zero and 0 otherwise, in constant time.
func (a Fp) IsZeroChoice() int {
	limbs := [4]uint64(a.e)
	return limbsIsZero(&limbs)
}

func (a Fp) Equal(b Fp) bool { return a.e.Equal(&b.e) }

func (a Fp) Bytes() [32]byte { return reverse32(a.e.Bytes()) }

func (a Fp) LEBytes() [32]byte { return a.e.Bytes() }

func (a Fp) String() string {
	b := a.Bytes()
	return hex.EncodeToString(b[:])
}

// SelectFp returns a when choice is 0 and b when choice is 1, in constant time.
func SelectFp(choice int, a, b Fp) Fp {
	var r Fp
	r.e.CMove(&a.e, &b.e, choice)
	return r
}
