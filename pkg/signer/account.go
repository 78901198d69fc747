package signer

import (
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/keys"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
)

// Account holds the keys of the initialized account together with the
// public values derived from them once at load time.
type Account struct {
	Index uint8

	secrets *keys.AccountKeys

	saplingFVK     sapling.FullViewingKey
	saplingAddress sapling.PaymentAddress
	orchardAsk     field.Fv
	orchardFVK     orchard.FullViewingKey
	orchardAddress orchard.Address
	transparent    *crypto.PrivateKey
}

// LoadAccount fetches the keys of index from p and derives the viewing keys,
// the default Sapling address and the transparent public key.
func LoadAccount(p keys.Provider, index uint8) (*Account, error) {
	secrets, err := p.AccountKeys(index)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", index, err)
	}
	a := &Account{Index: index, secrets: secrets}
	if err := a.derive(); err != nil {
		a.Close()
		return nil, fmt.Errorf("account %d: %w", index, err)
	}
	return a, nil
}

func (a *Account) derive() error {
	a.saplingFVK = a.secrets.Sapling.FullViewingKey()
	d, _, err := a.secrets.SaplingDk.DefaultDiversifier()
	if err != nil {
		return fmt.Errorf("sapling diversifier: %w", err)
	}
	if a.saplingAddress, err = a.saplingFVK.Address(d); err != nil {
		return fmt.Errorf("sapling address: %w", err)
	}

	if a.orchardAsk, err = a.secrets.Orchard.SpendAuthorizingKey(); err != nil {
		return err
	}
	if a.orchardFVK, err = a.secrets.Orchard.FullViewingKey(); err != nil {
		return err
	}
	if a.orchardAddress, err = a.orchardFVK.Address(0); err != nil {
		return fmt.Errorf("orchard address: %w", err)
	}

	if a.transparent, err = crypto.PrivateKeyFromBytes(a.secrets.Transparent[:]); err != nil {
		return fmt.Errorf("transparent key: %w", err)
	}
	return nil
}

// SaplingFVK returns ak || nk || ovk || dk.
func (a *Account) SaplingFVK() [128]byte {
	var out [128]byte
	fvk := a.saplingFVK.Bytes()
	copy(out[:96], fvk[:])
	copy(out[96:], a.secrets.SaplingDk[:])
	return out
}

// OrchardFVK returns ak || nk || rivk.
func (a *Account) OrchardFVK() [96]byte {
	return a.orchardFVK.Bytes()
}

// ProofGenerationKey returns ak || nsk, what a prover needs for Sapling spends.
func (a *Account) ProofGenerationKey() [64]byte {
	var out [64]byte
	ak, nsk := a.saplingFVK.Ak.Encode(), a.secrets.Sapling.Nsk.LEBytes()
	copy(out[:32], ak[:])
	copy(out[32:], nsk[:])
	return out
}

// SaplingAddress is the default Sapling payment address.
func (a *Account) SaplingAddress() sapling.PaymentAddress {
	return a.saplingAddress
}

// OrchardAddress is the Orchard payment address at diversifier index 0.
func (a *Account) OrchardAddress() orchard.Address {
	return a.orchardAddress
}

// TransparentPubKey is the compressed key at m/44'/coin'/account'/0/0.
func (a *Account) TransparentPubKey() [33]byte {
	return a.transparent.PublicKey().SerializeCompressed()
}

// TransparentAddress encodes the P2PKH address of the transparent key.
func (a *Account) TransparentAddress(prefix [2]byte) string {
	return a.transparent.PublicKey().Address(prefix)
}

// Close zeroizes the secrets held by a.
func (a *Account) Close() {
	if a.secrets != nil {
		a.secrets.Zeroize()
	}
	if a.transparent != nil {
		a.transparent.Zero()
	}
	a.orchardAsk = field.Fv{}
}
