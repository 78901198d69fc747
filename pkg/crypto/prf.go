package crypto

import (
	"hash"

	blake2b "github.com/minio/blake2b-simd"
)

// Personalizations of the key-derivation and note-encryption hashes.
const (
	ExpandSeedPersonalization    = "Zcash_ExpandSeed"
	SaplingKDFPersonalization    = "Zcash_SaplingKDF"
	OrchardKDFPersonalization    = "Zcash_OrchardKDF"
	RedJubjubHPersonalization    = "Zcash_RedJubjubH"
	RedPallasHPersonalization    = "Zcash_RedPallasH"
	SaplingMasterPersonalization = "ZcashIP32Sapling"
	OrchardMasterPersonalization = "ZcashIP32Orchard"
)

// blake2bNew512 creates a BLAKE2b-512 hash with the given personalization.
func blake2bNew512(personalization []byte) (hash.Hash, error) {
	return blake2b.New(&blake2b.Config{Size: 64, Person: personalization})
}

// Blake2b512 hashes the concatenation of parts under a 16-byte personalization.
func Blake2b512(personalization string, parts ...[]byte) [64]byte {
	h, err := blake2bNew512([]byte(personalization))
	if err != nil {
		// Only reachable with a personalization longer than 16 bytes.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 hashes the concatenation of parts under a 16-byte personalization.
func Blake2b256(personalization string, parts ...[]byte) [32]byte {
	h, err := blake2bNew256([]byte(personalization))
	if err != nil {
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PRFExpand is PRF^expand(sk, t) = BLAKE2b-512("Zcash_ExpandSeed", sk || t).
// The domain separator and any further inputs are passed as t.
func PRFExpand(sk []byte, t ...[]byte) [64]byte {
	return Blake2b512(ExpandSeedPersonalization, append([][]byte{sk}, t...)...)
}
