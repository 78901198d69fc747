// Package orchard implements the Orchard pieces the signer needs: the
// Sinsemilla hash and commitments, key components, payment addresses,
// compact note encryption and RedPallas signatures.
//
// References:
//   - Zcash protocol specification §4.2.3, §5.4.1.9, §5.4.8.4, §5.4.6.1
//   - ZIP 32 (Orchard child key derivation)
package orchard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

const (
	sinsemillaK        = 10
	sinsemillaMaxChunk = 253

	sinsemillaQDomain = "z.cash:SinsemillaQ"
	sinsemillaSDomain = "z.cash:SinsemillaS"
)

var ErrSinsemilla = errors.New("orchard: sinsemilla hash is undefined for this input")

// S(j) for all 1024 chunk values, filled on demand.
var sinsemillaS = struct {
	sync.Mutex
	points map[uint32]pallas.Point
}{points: make(map[uint32]pallas.Point)}

func sinsemillaGenerator(j uint32) (pallas.Point, error) {
	sinsemillaS.Lock()
	defer sinsemillaS.Unlock()
	if p, ok := sinsemillaS.points[j]; ok {
		return p, nil
	}
	var msg [4]byte
	binary.LittleEndian.PutUint32(msg[:], j)
	p, err := pallas.HashToCurve([]byte(sinsemillaSDomain), msg[:])
	if err != nil {
		return pallas.Point{}, err
	}
	sinsemillaS.points[j] = p
	return p, nil
}

// SinsemillaHashToPoint hashes bits under domain. The accumulator uses
// incomplete addition; an exceptional case yields ErrSinsemilla.
func SinsemillaHashToPoint(domain string, bits crypto.Bits) (pallas.Point, error) {
	chunks := (len(bits) + sinsemillaK - 1) / sinsemillaK
	if chunks > sinsemillaMaxChunk {
		return pallas.Point{}, fmt.Errorf("%w: %d chunks", ErrSinsemilla, chunks)
	}
	acc, err := pallas.HashToCurve([]byte(sinsemillaQDomain), []byte(domain))
	if err != nil {
		return pallas.Point{}, err
	}
	for i := 0; i < chunks; i++ {
		var m uint32
		for k := 0; k < sinsemillaK; k++ {
			m |= uint32(bits.At(i*sinsemillaK+k)) << uint(k)
		}
		s, err := sinsemillaGenerator(m)
		if err != nil {
			return pallas.Point{}, err
		}
		t, err := pallas.Add(acc, s)
		if err != nil {
			return pallas.Point{}, fmt.Errorf("%w: chunk %d", ErrSinsemilla, i)
		}
		if acc, err = pallas.Add(t, acc); err != nil {
			return pallas.Point{}, fmt.Errorf("%w: chunk %d", ErrSinsemilla, i)
		}
	}
	return acc, nil
}

// SinsemillaCommit is HashToPoint(D-M, bits) + [r] GroupHash(D-r, "").
func SinsemillaCommit(domain string, bits crypto.Bits, r field.Fv) (pallas.Point, error) {
	h, err := SinsemillaHashToPoint(domain+"-M", bits)
	if err != nil {
		return pallas.Point{}, err
	}
	base, err := pallas.HashToCurve([]byte(domain+"-r"), nil)
	if err != nil {
		return pallas.Point{}, err
	}
	return pallas.Sum(h, base.ScalarMul(r)), nil
}

// SinsemillaShortCommit is the x-coordinate of SinsemillaCommit.
func SinsemillaShortCommit(domain string, bits crypto.Bits, r field.Fv) (field.Fp, error) {
	p, err := SinsemillaCommit(domain, bits, r)
	if err != nil {
		return field.Fp{}, err
	}
	x, _, err := p.ToAffine()
	if err != nil {
		return field.Fp{}, fmt.Errorf("%w: commitment is the identity", ErrSinsemilla)
	}
	return x, nil
}
