// Package sapling implements the Sapling shielded protocol pieces the signer
// needs: key components, diversified payment addresses, the Pedersen hash,
// note commitments, compact note encryption and RedJubjub signatures.
//
// References:
//   - Zcash protocol specification §4.2.2, §5.4.1.7, §5.4.7.1, §5.4.8.2
//   - ZIP 212: https://zips.z.cash/zip-0212
package sapling

import (
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

// Group hash personalizations.
const (
	SpendAuthPersonalization = "Zcash_G_"
	PedersenPersonalization  = "Zcash_PH"
	DiversifyPersonalization = "Zcash_gd"
	CRHIvkPersonalization    = "Zcashivk"
)

var (
	// FindGroupHash("Zcash_G_", "")
	spendAuthGenerator = mustPoint("30b5f2aaad325630bcdddbce4d67656d05fd1cc2d037bb5375b6e96d9e01a1d7")
	// FindGroupHash("Zcash_H_", "")
	proofGenerationGenerator = mustPoint("e7e85de0f7f97a46d249a1f5ea51df50cc48490f8401c9de7a2adf1807d1b6d4")
	// FindGroupHash("Zcash_PH", "r")
	noteCommitRandomnessGenerator = mustPoint("ac776c796563fcd44cc49cfaea8bb796952c266e47779d94574c10ad01754b11")
)

func mustPoint(s string) jubjub.ExtendedPoint {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		panic("sapling: bad generator " + s)
	}
	p, err := jubjub.Decode([32]byte(raw))
	if err != nil {
		panic("sapling: bad generator " + s)
	}
	return p
}

// SpendAuthGenerator is the base point of spend authorization keys and RedJubjub.
func SpendAuthGenerator() jubjub.ExtendedPoint { return spendAuthGenerator }

// ProofGenerationGenerator is the base point of the nullifier deriving key nk.
func ProofGenerationGenerator() jubjub.ExtendedPoint { return proofGenerationGenerator }

// Pedersen generators are found on first use and cached.
var pedersenGenerators = struct {
	sync.Mutex
	points []jubjub.ExtendedPoint
}{}

func pedersenGenerator(segment int) (jubjub.ExtendedPoint, error) {
	pedersenGenerators.Lock()
	defer pedersenGenerators.Unlock()
	for len(pedersenGenerators.points) <= segment {
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(len(pedersenGenerators.points)))
		p, err := jubjub.FindGroupHash([]byte(PedersenPersonalization), idx[:])
		if err != nil {
			return jubjub.ExtendedPoint{}, err
		}
		pedersenGenerators.points = append(pedersenGenerators.points, p)
	}
	return pedersenGenerators.points[segment], nil
}
