package crypto

import (
	"fmt"
	"strings"

	"github.com/capitalone/fpe/ff1"
)

// DiversifierSize is the length of a Sapling or Orchard diversifier.
const DiversifierSize = 11

// FF1Diversifier encrypts an 88-bit little-endian index with FF1-AES256,
// radix 2 and an empty tweak. Numerals are the index bits least significant
// bit of each byte first; the ciphertext is packed back the same way.
func FF1Diversifier(key []byte, index [DiversifierSize]byte) ([DiversifierSize]byte, error) {
	const n = 8 * DiversifierSize

	cipher, err := ff1.NewCipher(2, 0, key, nil)
	if err != nil {
		return [DiversifierSize]byte{}, fmt.Errorf("ff1: %w", err)
	}
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte('0' + (index[i/8]>>(uint(i)%8))&1)
	}
	ct, err := cipher.Encrypt(sb.String())
	if err != nil {
		return [DiversifierSize]byte{}, fmt.Errorf("ff1: %w", err)
	}
	if len(ct) != n {
		return [DiversifierSize]byte{}, fmt.Errorf("ff1: unexpected output length %d", len(ct))
	}
	var d [DiversifierSize]byte
	for i := 0; i < n; i++ {
		if ct[i] == '1' {
			d[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return d, nil
}
