package keys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const hardenedOffset = uint32(0x80000000)

// Transparent derivation path m/44'/coin'/account'/0/0.
const (
	bip44Purpose  = 44
	externalChain = 0
	firstAddress  = 0
)

var errInvalidScalar = errors.New("bip32 scalar out of range")

// bip32Key is a secp256k1 extended private key.
type bip32Key struct {
	key       btcec.ModNScalar
	chainCode [32]byte
}

func bip32Master(seed []byte) (bip32Key, error) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)

	var k bip32Key
	if overflow := k.key.SetByteSlice(sum[:32]); overflow || k.key.IsZero() {
		return bip32Key{}, fmt.Errorf("master key: %w", errInvalidScalar)
	}
	copy(k.chainCode[:], sum[32:])
	return k, nil
}

// child derives the private child at index; indices at or above 2^31 are
// hardened.
func (k bip32Key) child(index uint32) (bip32Key, error) {
	data := make([]byte, 37)
	if index >= hardenedOffset {
		k.key.PutBytesUnchecked(data[1:33])
	} else {
		priv := btcec.PrivKeyFromScalar(&k.key)
		copy(data[:33], priv.PubKey().SerializeCompressed())
	}
	binary.BigEndian.PutUint32(data[33:], index)

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)

	var child bip32Key
	if overflow := child.key.SetByteSlice(sum[:32]); overflow {
		return bip32Key{}, fmt.Errorf("child %d: %w", index, errInvalidScalar)
	}
	child.key.Add(&k.key)
	if child.key.IsZero() {
		return bip32Key{}, fmt.Errorf("child %d: %w", index, errInvalidScalar)
	}
	copy(child.chainCode[:], sum[32:])
	return child, nil
}

func (k *bip32Key) zero() {
	k.key.Zero()
	k.chainCode = [32]byte{}
}

// transparentSecret derives the secret key at m/44'/coin'/account'/0/0.
func transparentSecret(seed []byte, coinType, account uint32) ([32]byte, error) {
	k, err := bip32Master(seed)
	if err != nil {
		return [32]byte{}, err
	}
	path := []uint32{
		bip44Purpose | hardenedOffset,
		coinType | hardenedOffset,
		account | hardenedOffset,
		externalChain,
		firstAddress,
	}
	for _, index := range path {
		next, err := k.child(index)
		k.zero()
		if err != nil {
			return [32]byte{}, err
		}
		k = next
	}
	defer k.zero()
	return k.key.Bytes(), nil
}
