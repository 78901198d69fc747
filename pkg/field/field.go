// Package field implements the prime fields used by the Jubjub and Pallas curves.
//
// Every modulus has its own Go type so a Jubjub scalar can never be passed where
// a Pallas base field element is expected:
//   - Fq: Jubjub base field (the BLS12-381 scalar field)
//   - Fr: Jubjub scalar field, the order r_J of the prime-order subgroup
//   - Fp: Pallas base field
//   - Fv: Pallas scalar field
//
// All types are small value types. Canonical encodings are 32-byte big-endian;
// the LE helpers exist because Zcash serializes scalars and coordinates
// little-endian on the wire.
//
// References:
//   - Zcash protocol specification §5.4.9.3 (Jubjub), §5.4.9.6 (Pallas and Vesta)
package field

import "errors"

var (
	// ErrNoSquareRoot is returned by Sqrt when the element is a quadratic non-residue.
	ErrNoSquareRoot = errors.New("field: element has no square root")

	// ErrNonCanonical is returned when an encoding is not reduced modulo the field prime.
	ErrNonCanonical = errors.New("field: non-canonical encoding")
)

func reverse32(b [32]byte) [32]byte {
	for i, j := 0, 31; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func reverse64(b [64]byte) [64]byte {
	for i, j := 0, 63; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
