package signer

import (
	"golang.org/x/crypto/chacha20"

	"github.com/suffix-labs/zcash-signer/pkg/field"
)

// Nonces separating the Sapling and Orchard randomizer streams of one mseed.
var (
	saplingAlphaNonce = [chacha20.NonceSize]byte{}
	orchardAlphaNonce = [chacha20.NonceSize]byte{1}
)

// AlphaStream draws spend authorization randomizers from ChaCha20 keyed by
// the session's mseed. The host holds the same mseed and draws the same
// sequence to build rk for each spend.
//
// The stream keeps its own copy of the key and a block counter; a cipher is
// built for each draw, so Zero leaves nothing keyed by mseed behind.
type AlphaStream struct {
	key     [chacha20.KeySize]byte
	nonce   [chacha20.NonceSize]byte
	counter uint32
}

// NewSaplingAlphas returns the Sapling randomizer stream of mseed.
func NewSaplingAlphas(mseed [32]byte) *AlphaStream {
	return &AlphaStream{key: mseed, nonce: saplingAlphaNonce}
}

// NewOrchardAlphas returns the Orchard randomizer stream of mseed.
func NewOrchardAlphas(mseed [32]byte) *AlphaStream {
	return &AlphaStream{key: mseed, nonce: orchardAlphaNonce}
}

// next returns the next 64-byte ChaCha20 block.
func (s *AlphaStream) next() [64]byte {
	c, err := chacha20.NewUnauthenticatedCipher(s.key[:], s.nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed by the array types.
		panic(err)
	}
	c.SetCounter(s.counter)
	s.counter++

	var buf [64]byte
	c.XORKeyStream(buf[:], buf[:])
	return buf
}

// Zero wipes the key. It is safe on a nil stream.
func (s *AlphaStream) Zero() {
	if s == nil {
		return
	}
	clear(s.key[:])
	s.counter = 0
}

// NextSapling returns the next Jubjub scalar of the stream.
func (s *AlphaStream) NextSapling() field.Fr {
	return field.FrFromWideLE(s.next())
}

// NextOrchard returns the next Pallas scalar of the stream.
func (s *AlphaStream) NextOrchard() field.Fv {
	return field.FvFromWideLE(s.next())
}
