package field

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fq"
)

// Fv is an element of the Pallas scalar field (the Vesta base field),
// q = 0x40000000000000000000000000000000224698fc0994a8dd8c46eb2100000001.
type Fv struct {
	e fq.Fq
}

func FvOne() Fv {
	var r Fv
	r.e.SetOne()
	return r
}

func FvFromUint64(v uint64) Fv {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:8], v)
	r, _ := FvFromLEBytes(b)
	return r
}

// FvFromBytes decodes a canonical big-endian encoding.
func FvFromBytes(b [32]byte) (Fv, error) {
	return FvFromLEBytes(reverse32(b))
}

// FvFromLEBytes decodes a canonical little-endian encoding.
func FvFromLEBytes(b [32]byte) (Fv, error) {
	var r Fv
	if _, err := r.e.SetBytes(&b); err != nil {
		return Fv{}, ErrNonCanonical
	}
	return r, nil
}

// FvFromWideLE reduces a 512-bit little-endian integer modulo q (ToScalar for Orchard).
func FvFromWideLE(b [64]byte) Fv {
	var r Fv
	r.e.SetBytesWide(&b)
	return r
}

func (a Fv) Add(b Fv) Fv {
	var r Fv
	r.e.Add(&a.e, &b.e)
	return r
}

func (a Fv) Sub(b Fv) Fv {
	var r Fv
	r.e.Sub(&a.e, &b.e)
	return r
}

func (a Fv) Mul(b Fv) Fv {
	var r Fv
	r.e.Mul(&a.e, &b.e)
	return r
}

func (a Fv) Square() Fv {
	var r Fv
	r.e.Square(&a.e)
	return r
}

func (a Fv) Double() Fv {
	var r Fv
	r.e.Double(&a.e)
	return r
}

func (a Fv) Neg() Fv {
	var r Fv
	r.e.Neg(&a.e)
	return r
}

// Invert returns a^-1, or zero when a is zero.
func (a Fv) Invert() Fv {
	var r Fv
	if _, ok := r.e.Invert(&a.e); !ok {
		return Fv{}
	}
	return r
}

// Sqrt returns a square root of a.
func (a Fv) Sqrt() (Fv, error) {
	var r Fv
	if _, ok := r.e.Sqrt(&a.e); !ok {
		return Fv{}, ErrNoSquareRoot
	}
	return r, nil
}

func (a Fv) IsOdd() bool {
	b := a.e.Bytes()
	return b[0]&1 == 1
}

func (a Fv) IsZero() bool { return a.e.IsZero() }

func (a Fv) Equal(b Fv) bool { return a.e.Cmp(&b.e) == 0 }

func (a Fv) Bytes() [32]byte { return reverse32(a.e.Bytes()) }

func (a Fv) LEBytes() [32]byte { return a.e.Bytes() }

func (a Fv) String() string {
	b := a.Bytes()
	return hex.EncodeToString(b[:])
}
