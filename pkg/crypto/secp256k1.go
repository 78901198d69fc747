package crypto

// Transparent inputs in Zcash use Bitcoin-style secp256k1 ECDSA signatures.
//
// Key formats:
//   - Private keys: raw 32 bytes
//   - Public keys: Compressed 33-byte format (0x02/0x03 prefix + x-coordinate)
//   - Signatures: DER-encoded, low-S
//   - Addresses: Base58Check over a 2-byte prefix and the key or script hash

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	sha256 "github.com/minio/sha256-simd"
)

// Transparent address prefixes.
var (
	MainnetP2PKHPrefix = [2]byte{0x1C, 0xB8} // t1
	MainnetP2SHPrefix  = [2]byte{0x1C, 0xBD} // t3
	TestnetP2PKHPrefix = [2]byte{0x1D, 0x25} // tm
	TestnetP2SHPrefix  = [2]byte{0x1C, 0xBA} // t2
)

var (
	ErrInvalidAddress = errors.New("invalid transparent address")
	ErrChecksum       = errors.New("base58check checksum mismatch")
)

// PrivateKey wraps secp256k1 private key
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps secp256k1 public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// PrivateKeyFromBytes creates a private key from raw bytes. Zero and
// out-of-range scalars are rejected.
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(keyBytes); overflow || s.IsZero() {
		return nil, errors.New("private key out of range")
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// Sign creates a deterministic (RFC 6979) ECDSA signature in DER form.
func (pk *PrivateKey) Sign(hash [32]byte) []byte {
	return ecdsa.Sign(pk.key, hash[:]).Serialize()
}

// PublicKey derives the public key
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Zero clears the key material.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SerializeCompressed returns the 33-byte compressed public key
func (pub *PublicKey) SerializeCompressed() [33]byte {
	var result [33]byte
	copy(result[:], pub.key.SerializeCompressed())
	return result
}

// Hash160 is RIPEMD160(SHA256(compressed key)).
func (pub *PublicKey) Hash160() [20]byte {
	return [20]byte(btcutil.Hash160(pub.key.SerializeCompressed()))
}

// Address encodes the P2PKH address of the key under prefix.
func (pub *PublicKey) Address(prefix [2]byte) string {
	return EncodeTransparentAddress(prefix, pub.Hash160())
}

// ParsePublicKey parses a compressed public key
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != 33 {
		return nil, fmt.Errorf("compressed public key must be 33 bytes, got %d", len(pubKeyBytes))
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &PublicKey{key: pubKey}, nil
}

// VerifySignature verifies an ECDSA signature
func VerifySignature(pubkey *PublicKey, hash [32]byte, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}

	return sig.Verify(hash[:], pubkey.key)
}

// checksum is the first 4 bytes of SHA256(SHA256(payload)).
func checksum(payload []byte) [4]byte {
	hash1 := sha256.Sum256(payload)
	hash2 := sha256.Sum256(hash1[:])
	return [4]byte(hash2[:4])
}

// EncodeTransparentAddress encodes prefix || hash with a Base58Check checksum.
func EncodeTransparentAddress(prefix [2]byte, hash [20]byte) string {
	payload := make([]byte, 0, 2+20+4)
	payload = append(payload, prefix[:]...)
	payload = append(payload, hash[:]...)
	sum := checksum(payload)
	return base58.Encode(append(payload, sum[:]...))
}

// DecodeTransparentAddress is the inverse of EncodeTransparentAddress.
func DecodeTransparentAddress(addr string) (prefix [2]byte, hash [20]byte, err error) {
	decoded := base58.Decode(addr)
	if len(decoded) != 2+20+4 {
		return prefix, hash, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}
	payload := decoded[:22]
	if checksum(payload) != [4]byte(decoded[22:]) {
		return prefix, hash, ErrChecksum
	}
	copy(prefix[:], payload[:2])
	copy(hash[:], payload[2:])
	return prefix, hash, nil
}

// ScriptSig builds the P2PKH unlocking script <DER||hashType> <pubkey>.
func ScriptSig(der []byte, hashType uint8, pub [33]byte) []byte {
	script := make([]byte, 0, 1+len(der)+1+1+33)
	script = append(script, byte(len(der)+1))
	script = append(script, der...)
	script = append(script, hashType, 33)
	return append(script, pub[:]...)
}
