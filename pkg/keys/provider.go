// Package keys supplies the per-account key material the signer works with.
//
// The signer never sees a seed. It asks a Provider for the keys of one
// account: the Sapling expanded spending key and diversifier key, the Orchard
// spending key, and the transparent secp256k1 secret. SeedProvider derives
// them from a seed with ZIP 32 (shielded) and BIP 44 (transparent); it is the
// development provider behind the CLI.
package keys

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
)

// SLIP-44 coin types.
const (
	CoinTypeMainnet uint32 = 133
	CoinTypeTestnet uint32 = 1
)

// ErrSeedLength is returned for seeds outside the 32..252 byte range of ZIP 32.
var ErrSeedLength = errors.New("seed must be 32 to 252 bytes")

// AccountKeys is the secret key material of one account.
type AccountKeys struct {
	Sapling     sapling.ExpandedSpendingKey
	SaplingDk   sapling.DiversifierKey
	Orchard     orchard.SpendingKey
	Transparent [32]byte // secp256k1 secret at m/44'/coin'/account'/0/0
}

// Zeroize overwrites every secret in k.
func (k *AccountKeys) Zeroize() {
	k.Sapling.Ask = field.Fr{}
	k.Sapling.Nsk = field.Fr{}
	k.Sapling.Ovk = [32]byte{}
	k.SaplingDk = sapling.DiversifierKey{}
	k.Orchard = orchard.SpendingKey{}
	k.Transparent = [32]byte{}
}

// Provider returns the keys of an account. Callers own the returned value
// and zeroize it when done.
type Provider interface {
	AccountKeys(account uint8) (*AccountKeys, error)
}

// SeedProvider derives account keys from a seed held in memory.
type SeedProvider struct {
	seed     []byte
	coinType uint32
}

// NewSeedProvider copies seed.
func NewSeedProvider(seed []byte, coinType uint32) (*SeedProvider, error) {
	if len(seed) < 32 || len(seed) > 252 {
		return nil, fmt.Errorf("%w: got %d", ErrSeedLength, len(seed))
	}
	return &SeedProvider{seed: append([]byte(nil), seed...), coinType: coinType}, nil
}

// NewMnemonicProvider derives the BIP 39 seed of mnemonic and passphrase.
func NewMnemonicProvider(mnemonic, passphrase string, coinType uint32) (*SeedProvider, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	defer clear(seed)
	return NewSeedProvider(seed, coinType)
}

// AccountKeys derives m/32'/coin'/account' for Sapling and Orchard and
// m/44'/coin'/account'/0/0 for the transparent key.
func (p *SeedProvider) AccountKeys(account uint8) (*AccountKeys, error) {
	acct := uint32(account)

	s := SaplingMaster(p.seed).
		HardenedChild(zip32Purpose).
		HardenedChild(p.coinType).
		HardenedChild(acct)
	o := OrchardMaster(p.seed).
		HardenedChild(zip32Purpose).
		HardenedChild(p.coinType).
		HardenedChild(acct)

	t, err := transparentSecret(p.seed, p.coinType, acct)
	if err != nil {
		return nil, fmt.Errorf("transparent key for account %d: %w", account, err)
	}

	return &AccountKeys{
		Sapling:     s.Key,
		SaplingDk:   s.Dk,
		Orchard:     o.SpendingKey,
		Transparent: t,
	}, nil
}

// Close zeroizes the seed.
func (p *SeedProvider) Close() {
	clear(p.seed)
}
