package jubjub

import (
	"errors"

	"github.com/dchest/blake2s"
)

// URS is the uniform random string hashed in front of every GroupHash^J input.
const URS = "096b36a5804bfacef1691e173c366a47ff5ba84a44f26ddd7e8d9f79d5b42df0"

// ErrGroupHash is returned when a GroupHash^J input does not map to a
// prime-order point.
var ErrGroupHash = errors.New("jubjub: group hash has no prime-order output")

// GroupHash hashes msg under the 8-byte personalization to a point of the
// prime-order subgroup: BLAKE2s-256(URS || msg), decoded, then multiplied by
// the cofactor. The identity is rejected.
func GroupHash(personalization, msg []byte) (ExtendedPoint, error) {
	if len(personalization) != 8 {
		return ExtendedPoint{}, errors.New("jubjub: group hash personalization must be 8 bytes")
	}
	h, err := blake2s.New(&blake2s.Config{Size: 32, Person: personalization})
	if err != nil {
		return ExtendedPoint{}, err
	}
	h.Write([]byte(URS))
	h.Write(msg)

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	p, err := Decode(digest)
	if err != nil {
		return ExtendedPoint{}, ErrGroupHash
	}
	p = p.MulByCofactor()
	if p.IsIdentity() {
		return ExtendedPoint{}, ErrGroupHash
	}
	return p, nil
}

// FindGroupHash appends a counter byte 0..255 to msg until GroupHash succeeds.
func FindGroupHash(personalization, msg []byte) (ExtendedPoint, error) {
	buf := make([]byte, len(msg)+1)
	copy(buf, msg)
	for i := 0; i < 256; i++ {
		buf[len(msg)] = byte(i)
		p, err := GroupHash(personalization, buf)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrGroupHash) {
			return ExtendedPoint{}, err
		}
	}
	return ExtendedPoint{}, ErrGroupHash
}
