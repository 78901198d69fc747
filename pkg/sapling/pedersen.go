package sapling

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

const (
	// MerkleDepth is the depth of the Sapling note commitment tree.
	MerkleDepth = 32

	chunksPerSegment = 63
	bitsPerSegment   = 3 * chunksPerSegment
)

var ErrInvalidDepth = errors.New("sapling: merkle layer out of range")

// segmentScalar encodes up to 63 three-bit chunks as
// sum (1 - 2 s2)(1 + s0 + 2 s1) 2^(4i).
func segmentScalar(bits crypto.Bits) field.Fr {
	var acc field.Fr
	pow := field.FrOne()
	sixteen := field.FrFromUint64(16)
	for i := 0; i < len(bits); i += 3 {
		s0, s1, s2 := bits.At(i), bits.At(i+1), bits.At(i+2)
		term := field.FrFromUint64(1 + s0 + 2*s1).Mul(pow)
		if s2 == 1 {
			term = term.Neg()
		}
		acc = acc.Add(term)
		pow = pow.Mul(sixteen)
	}
	return acc
}

// pedersenHashToPoint hashes bits with the "Zcash_PH" generators.
func pedersenHashToPoint(bits crypto.Bits) (jubjub.ExtendedPoint, error) {
	acc := jubjub.Identity()
	for seg := 0; seg*bitsPerSegment < len(bits); seg++ {
		end := min(len(bits), (seg+1)*bitsPerSegment)
		g, err := pedersenGenerator(seg)
		if err != nil {
			return jubjub.ExtendedPoint{}, err
		}
		acc = acc.Add(g.ScalarMul(segmentScalar(bits[seg*bitsPerSegment : end])))
	}
	return acc, nil
}

// extractU returns the u-coordinate of p, little-endian.
func extractU(p jubjub.ExtendedPoint) ([32]byte, error) {
	a, err := p.ToAffine()
	if err != nil {
		return [32]byte{}, err
	}
	return a.U.LEBytes(), nil
}

// MerkleHash is MerkleCRH^Sapling for a node at the given depth of the tree,
// depth 0 being the layer directly above the leaves. left and right are the
// little-endian encodings of the children; only their low 255 bits are hashed.
func MerkleHash(depth uint8, left, right [32]byte) ([32]byte, error) {
	if depth >= MerkleDepth {
		return [32]byte{}, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	bits := make(crypto.Bits, 0, 6+255+255)
	bits = bits.AppendUint(uint64(depth), 6)
	bits = bits.AppendBytes(left[:], 255)
	bits = bits.AppendBytes(right[:], 255)

	p, err := pedersenHashToPoint(bits)
	if err != nil {
		return [32]byte{}, err
	}
	return extractU(p)
}

// noteCommitment is NoteCommit^Sapling_rcm(g_d, pk_d, v).
func noteCommitment(gd, pkd [32]byte, value uint64, rcm field.Fr) (jubjub.ExtendedPoint, error) {
	bits := make(crypto.Bits, 0, 6+64+256+256)
	bits = bits.AppendUint(0x3f, 6)
	bits = bits.AppendUint(value, 64)
	bits = bits.AppendBytes(gd[:], 256)
	bits = bits.AppendBytes(pkd[:], 256)

	p, err := pedersenHashToPoint(bits)
	if err != nil {
		return jubjub.ExtendedPoint{}, err
	}
	return p.Add(noteCommitRandomnessGenerator.ScalarMul(rcm)), nil
}
