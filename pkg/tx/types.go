// Package tx describes the v5 transactions the signer authorizes and the
// fixed-size records that carry their parts over the command boundary.
//
// A Transaction holds the full effecting data a host needs to compute ZIP 244
// digests, plus the note plaintexts (recipient, value, rseed) the device needs
// to check shielded outputs. The records in records.go are the per-item wire
// forms sent to the device.
//
// References:
//   - ZIP 225: https://zips.z.cash/zip-0225 (v5 transaction format)
//   - ZIP 244: https://zips.z.cash/zip-0244
package tx

// Transaction is a v5 transaction together with the output plaintexts.
type Transaction struct {
	Header      Header
	Transparent TransparentBundle
	Sapling     SaplingBundle
	Orchard     OrchardBundle
}

// Header contains the transaction-wide fields hashed into the header digest.
type Header struct {
	Version           uint32 // Transaction version (5), without the overwintered bit
	VersionGroupID    uint32 // 0x26A7270A for v5
	ConsensusBranchID uint32 // Network upgrade the transaction targets
	LockTime          uint32
	ExpiryHeight      uint32 // Block height after which the tx is invalid (ZIP 203)
}

// TransparentBundle contains transparent inputs and outputs.
type TransparentBundle struct {
	Inputs  []TransparentInput
	Outputs []TransparentOutput
}

// TransparentInput is a transparent coin being spent.
type TransparentInput struct {
	PrevoutTxID  [32]byte // txid of the UTXO being spent
	PrevoutIndex uint32   // Output index in the previous transaction
	Value        uint64   // Value in zatoshis
	ScriptPubKey []byte   // Locking script of the UTXO
	Sequence     uint32

	ScriptSig []byte // Unlocking script, empty until signed
}

// TransparentOutput is a transparent coin being created.
type TransparentOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// SaplingBundle contains Sapling spends and outputs.
//
// ValueBalance is the net value leaving the Sapling pool: spends minus
// outputs. It is positive when value flows to the transparent pool or fee.
type SaplingBundle struct {
	Spends       []SaplingSpend
	Outputs      []SaplingOutput
	ValueBalance int64
	Anchor       [32]byte // Shared by every spend in v5
	BindingSig   [SignatureSize]byte
}

// SaplingSpend holds the effecting data of a Sapling spend.
type SaplingSpend struct {
	Cv        [32]byte // Value commitment
	Nullifier [32]byte
	Rk        [32]byte // Randomized verification key

	Proof        [GrothProofSize]byte
	SpendAuthSig [SignatureSize]byte
}

// SaplingOutput is a Sapling output and the note it encrypts.
type SaplingOutput struct {
	Cv            [32]byte
	Cmu           [32]byte // u-coordinate of the note commitment
	EphemeralKey  [32]byte
	EncCiphertext [EncCiphertextSize]byte
	OutCiphertext [OutCiphertextSize]byte

	// Note plaintext, checked by the device against Cmu, EphemeralKey and
	// the first 52 bytes of EncCiphertext.
	Recipient [AddressSize]byte // d || pk_d
	Value     uint64
	Rseed     [32]byte

	Proof [GrothProofSize]byte
}

// OrchardBundle contains Orchard actions.
type OrchardBundle struct {
	Actions      []OrchardAction
	Flags        uint8 // OrchardFlagsEnabled
	ValueBalance int64
	Anchor       [32]byte
	Proof        []byte // Aggregated Halo 2 proof
	BindingSig   [SignatureSize]byte
}

// OrchardAction is a combined spend and output.
type OrchardAction struct {
	CvNet         [32]byte // Net value commitment
	Nullifier     [32]byte // Nullifier of the spent note; rho of the new one
	Rk            [32]byte
	Cmx           [32]byte // x-coordinate of the note commitment
	EphemeralKey  [32]byte
	EncCiphertext [EncCiphertextSize]byte
	OutCiphertext [OutCiphertextSize]byte

	Recipient [AddressSize]byte
	Value     uint64
	Rseed     [32]byte

	SpendAuthSig [SignatureSize]byte
}

// Transaction format constants.
const (
	V5TxVersion      uint32 = 5
	V5VersionGroupID uint32 = 0x26A7270A

	// Consensus branch IDs
	BranchIDNU5 uint32 = 0xC2D6D0B4
	BranchIDNU6 uint32 = 0xC8E71055

	AddressSize       = 43  // Raw shielded address: diversifier || pk_d
	EncCiphertextSize = 580 // Note plaintext + memo + AEAD tag
	OutCiphertextSize = 80
	CompactNoteSize   = 52 // Prefix of EncCiphertext visible to light clients
	MemoEnd           = 564
	GrothProofSize    = 192
	SignatureSize     = 64
)

// MaxMoney is the largest valid amount, 21 million ZEC in zatoshis.
const MaxMoney uint64 = 21_000_000 * 100_000_000

// SighashAll signs every input and output.
const SighashAll uint8 = 0x01

// OrchardFlagsEnabled enables both spends and outputs.
const OrchardFlagsEnabled uint8 = 0b00000011

// Fee returns transparent in - transparent out + both shielded value balances.
func (t *Transaction) Fee() int64 {
	var fee int64
	for _, in := range t.Transparent.Inputs {
		fee += int64(in.Value)
	}
	for _, out := range t.Transparent.Outputs {
		fee -= int64(out.Value)
	}
	return fee + t.Sapling.ValueBalance + t.Orchard.ValueBalance
}
