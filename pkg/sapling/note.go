package sapling

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/jubjub"
)

// CompactCiphertextSize is the length of lead byte || d || v || rseed.
const CompactCiphertextSize = crypto.CompactCiphertextSize

var ErrOutputMismatch = errors.New("sapling: output does not match its note")

// Note is a ZIP-212 Sapling note.
type Note struct {
	Recipient PaymentAddress
	Value     uint64
	Rseed     [32]byte
}

// Rcm is the commitment trapdoor derived from rseed.
func (n Note) Rcm() field.Fr {
	return field.FrFromWideLE(crypto.PRFExpand(n.Rseed[:], []byte{0x04}))
}

// Esk is the ephemeral secret key derived from rseed.
func (n Note) Esk() field.Fr {
	return field.FrFromWideLE(crypto.PRFExpand(n.Rseed[:], []byte{0x05}))
}

// CompactOutput holds what a shielded output reveals to light clients.
type CompactOutput struct {
	Cmu        [32]byte
	Epk        [32]byte
	Ciphertext [CompactCiphertextSize]byte
}

// Bytes returns cmu || epk || ciphertext, the form folded into the
// compact outputs digest.
func (c CompactOutput) Bytes() []byte {
	out := make([]byte, 0, 32+32+CompactCiphertextSize)
	out = append(out, c.Cmu[:]...)
	out = append(out, c.Epk[:]...)
	return append(out, c.Ciphertext[:]...)
}

// Cmu returns the u-coordinate of the note commitment.
func (n Note) Cmu() ([32]byte, error) {
	gd, err := DiversifyHash(n.Recipient.Diversifier)
	if err != nil {
		return [32]byte{}, err
	}
	return n.cmu(gd)
}

func (n Note) cmu(gd jubjub.ExtendedPoint) ([32]byte, error) {
	cm, err := noteCommitment(gd.Encode(), n.Recipient.PkD, n.Value, n.Rcm())
	if err != nil {
		return [32]byte{}, err
	}
	return extractU(cm)
}

// Encrypt computes the note commitment, the ephemeral key and the first
// 52 bytes of the note ciphertext.
func (n Note) Encrypt() (CompactOutput, error) {
	out, _, err := n.encrypt()
	return out, err
}

// EncryptWithMemo is Encrypt that also returns the full enc_ciphertext of
// n carrying memo.
func (n Note) EncryptWithMemo(memo [crypto.MemoSize]byte) (CompactOutput, []byte, error) {
	out, key, err := n.encrypt()
	if err != nil {
		return CompactOutput{}, nil, err
	}
	enc, err := crypto.SealNote(key, n.plaintext(), memo)
	if err != nil {
		return CompactOutput{}, nil, err
	}
	return out, enc, nil
}

func (n Note) encrypt() (CompactOutput, [32]byte, error) {
	gd, err := DiversifyHash(n.Recipient.Diversifier)
	if err != nil {
		return CompactOutput{}, [32]byte{}, err
	}
	pkd, err := jubjub.Decode(n.Recipient.PkD)
	if err != nil {
		return CompactOutput{}, [32]byte{}, fmt.Errorf("pk_d: %w", err)
	}

	var out CompactOutput
	if out.Cmu, err = n.cmu(gd); err != nil {
		return CompactOutput{}, [32]byte{}, err
	}

	esk := n.Esk()
	out.Epk = gd.ScalarMul(esk).Encode()
	shared := pkd.ScalarMul(esk).MulByCofactor().Encode()
	key := crypto.Blake2b256(crypto.SaplingKDFPersonalization, shared[:], out.Epk[:])

	out.Ciphertext = n.plaintext()
	if err := crypto.XORNoteStream(key, out.Ciphertext[:]); err != nil {
		return CompactOutput{}, [32]byte{}, err
	}
	return out, key, nil
}

func (n Note) plaintext() [CompactCiphertextSize]byte {
	return crypto.CompactPlaintext(n.Recipient.Diversifier, n.Value, n.Rseed)
}

// VerifyOutput re-encrypts n and checks the claimed epk and ciphertext.
// It returns the compact output with the commitment computed here.
func (n Note) VerifyOutput(epk [32]byte, ciphertext [CompactCiphertextSize]byte) (CompactOutput, error) {
	out, err := n.Encrypt()
	if err != nil {
		return CompactOutput{}, err
	}
	if out.Epk != epk {
		return CompactOutput{}, fmt.Errorf("%w: epk", ErrOutputMismatch)
	}
	if out.Ciphertext != ciphertext {
		return CompactOutput{}, fmt.Errorf("%w: ciphertext", ErrOutputMismatch)
	}
	return out, nil
}
