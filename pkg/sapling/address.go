package sapling

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

const (
	// PaymentAddressHRP is the mainnet bech32 prefix of Sapling addresses.
	PaymentAddressHRP = "zs"

	// maxDiversifierSearch bounds DefaultDiversifier. About half of all
	// diversifiers are valid, so the bound is never reached in practice.
	maxDiversifierSearch = 1 << 16
)

var (
	ErrInvalidDiversifier = errors.New("sapling: diversifier has no group hash")
	ErrInvalidAddress     = errors.New("sapling: invalid payment address")
)

// Diversifier is an 11-byte address diversifier.
type Diversifier [crypto.DiversifierSize]byte

// DiversifyHash is GH^J("Zcash_gd", d).
func DiversifyHash(d Diversifier) (jubjub.ExtendedPoint, error) {
	p, err := jubjub.GroupHash([]byte(DiversifyPersonalization), d[:])
	if err != nil {
		return jubjub.ExtendedPoint{}, fmt.Errorf("%w: %x", ErrInvalidDiversifier, d[:])
	}
	return p, nil
}

// DiversifierKey is the ZIP-32 diversifier key dk.
type DiversifierKey [32]byte

// Diversifier encrypts the 88-bit index j with FF1-AES256 keyed by dk.
func (dk DiversifierKey) Diversifier(j uint64) (Diversifier, error) {
	var index [crypto.DiversifierSize]byte
	binary.LittleEndian.PutUint64(index[:8], j)
	d, err := crypto.FF1Diversifier(dk[:], index)
	return Diversifier(d), err
}

// DefaultDiversifier returns the first valid diversifier and its index.
func (dk DiversifierKey) DefaultDiversifier() (Diversifier, uint64, error) {
	for j := uint64(0); j < maxDiversifierSearch; j++ {
		d, err := dk.Diversifier(j)
		if err != nil {
			return Diversifier{}, 0, err
		}
		if _, err := DiversifyHash(d); err == nil {
			return d, j, nil
		}
	}
	return Diversifier{}, 0, ErrInvalidDiversifier
}

// PaymentAddress is (d, pk_d) with pk_d kept in its 32-byte encoding.
type PaymentAddress struct {
	Diversifier Diversifier
	PkD         [32]byte
}

// ParsePaymentAddress validates the raw 43-byte encoding d || repr(pk_d).
func ParsePaymentAddress(raw [43]byte) (PaymentAddress, error) {
	var addr PaymentAddress
	copy(addr.Diversifier[:], raw[:11])
	copy(addr.PkD[:], raw[11:])
	if _, err := DiversifyHash(addr.Diversifier); err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if _, err := jubjub.Decode(addr.PkD); err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: pk_d: %w", ErrInvalidAddress, err)
	}
	return addr, nil
}

func (a PaymentAddress) Bytes() [43]byte {
	var out [43]byte
	copy(out[:11], a.Diversifier[:])
	copy(out[11:], a.PkD[:])
	return out
}

// Encode returns the bech32 form with the "zs" prefix.
func (a PaymentAddress) Encode() (string, error) {
	raw := a.Bytes()
	data, err := bech32.ConvertBits(raw[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(PaymentAddressHRP, data)
}

// DecodePaymentAddress parses a bech32 "zs" address.
func DecodePaymentAddress(s string) (PaymentAddress, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if hrp != PaymentAddressHRP {
		return PaymentAddress{}, fmt.Errorf("%w: prefix %q", ErrInvalidAddress, hrp)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) != 43 {
		return PaymentAddress{}, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(raw))
	}
	return ParsePaymentAddress([43]byte(raw))
}
