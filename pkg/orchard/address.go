package orchard

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

var ErrInvalidAddress = errors.New("orchard: invalid payment address")

// DiversifyHash maps a diversifier to g_d, falling back to the empty
// message when the first hash lands on the identity.
func DiversifyHash(d [crypto.DiversifierSize]byte) (pallas.Point, error) {
	p, err := pallas.HashToCurve([]byte(diversifyDomain), d[:])
	if err != nil {
		return pallas.Point{}, err
	}
	if p.IsIdentity() {
		return pallas.HashToCurve([]byte(diversifyDomain), nil)
	}
	return p, nil
}

// Address is a raw Orchard payment address (d, pk_d).
type Address struct {
	Diversifier [crypto.DiversifierSize]byte
	PkD         [32]byte
}

// ParseAddress checks that pk_d is a valid non-identity point.
func ParseAddress(raw [43]byte) (Address, error) {
	var a Address
	copy(a.Diversifier[:], raw[:11])
	copy(a.PkD[:], raw[11:])
	p, err := pallas.Decode(a.PkD)
	if err != nil {
		return Address{}, fmt.Errorf("%w: pk_d: %w", ErrInvalidAddress, err)
	}
	if p.IsIdentity() {
		return Address{}, fmt.Errorf("%w: pk_d is the identity", ErrInvalidAddress)
	}
	return a, nil
}

func (a Address) Bytes() [43]byte {
	var out [43]byte
	copy(out[:11], a.Diversifier[:])
	copy(out[11:], a.PkD[:])
	return out
}
