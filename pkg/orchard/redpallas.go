package orchard

import (
	"fmt"
	"io"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

// Signature is R || S.
type Signature [64]byte

func hStar(parts ...[]byte) field.Fv {
	return field.FvFromWideLE(crypto.Blake2b512(crypto.RedPallasHPersonalization, parts...))
}

// RandomizeKey returns rsk = ask + alpha.
func RandomizeKey(ask, alpha field.Fv) field.Fv { return ask.Add(alpha) }

// RandomizeVerificationKey returns rk = ak + [alpha]G.
func RandomizeVerificationKey(ak pallas.Point, alpha field.Fv) pallas.Point {
	return pallas.Sum(ak, spendAuthGenerator.ScalarMul(alpha))
}

// Sign produces a RedPallas signature over msg. rand supplies the 80 bytes of T.
func Sign(sk field.Fv, msg []byte, rand io.Reader) (Signature, error) {
	var t [80]byte
	if _, err := io.ReadFull(rand, t[:]); err != nil {
		return Signature{}, fmt.Errorf("redpallas: %w", err)
	}
	vk := spendAuthGenerator.ScalarMul(sk).Encode()

	r := hStar(t[:], vk[:], msg)
	rBar := spendAuthGenerator.ScalarMul(r).Encode()
	c := hStar(rBar[:], vk[:], msg)
	s := r.Add(c.Mul(sk)).LEBytes()

	var sig Signature
	copy(sig[:32], rBar[:])
	copy(sig[32:], s[:])
	return sig, nil
}

// Verify checks [S]G = R + [c]vk.
func Verify(vk pallas.Point, msg []byte, sig Signature) bool {
	r, err := pallas.Decode([32]byte(sig[:32]))
	if err != nil {
		return false
	}
	s, err := field.FvFromLEBytes([32]byte(sig[32:]))
	if err != nil {
		return false
	}
	vkBar := vk.Encode()
	c := hStar(sig[:32], vkBar[:], msg)
	return spendAuthGenerator.ScalarMul(s).Equal(pallas.Sum(r, vk.ScalarMul(c)))
}
