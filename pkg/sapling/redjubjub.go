package sapling

import (
	"fmt"
	"io"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

// Signature is R || S.
type Signature [64]byte

// hStar is H*(M) = LEOS2IP(BLAKE2b-512("Zcash_RedJubjubH", M)) mod r.
func hStar(parts ...[]byte) field.Fr {
	return field.FrFromWideLE(crypto.Blake2b512(crypto.RedJubjubHPersonalization, parts...))
}

// RandomizeKey returns rsk = ask + alpha.
func RandomizeKey(ask, alpha field.Fr) field.Fr {
	return ask.Add(alpha)
}

// RandomizeVerificationKey returns rk = ak + [alpha]G.
func RandomizeVerificationKey(ak jubjub.ExtendedPoint, alpha field.Fr) jubjub.ExtendedPoint {
	return ak.Add(spendAuthGenerator.ScalarMul(alpha))
}

// Sign produces a RedJubjub signature over msg with the spend authorization
// base point. rand supplies the 80 bytes of T.
func Sign(sk field.Fr, msg []byte, rand io.Reader) (Signature, error) {
	var t [80]byte
	if _, err := io.ReadFull(rand, t[:]); err != nil {
		return Signature{}, fmt.Errorf("redjubjub: %w", err)
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

// Verify checks sig under vk with the cofactor-multiplied equation.
func Verify(vk jubjub.ExtendedPoint, msg []byte, sig Signature) bool {
	r, err := jubjub.Decode([32]byte(sig[:32]))
	if err != nil {
		return false
	}
	s, err := field.FrFromLEBytes([32]byte(sig[32:]))
	if err != nil {
		return false
	}
	vkBar := vk.Encode()
	c := hStar(sig[:32], vkBar[:], msg)

	lhs := spendAuthGenerator.ScalarMul(s)
	rhs := r.Add(vk.ScalarMul(c))
	return lhs.Sub(rhs).MulByCofactor().IsIdentity()
}
