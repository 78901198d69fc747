package orchard

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/pallas"
)

var ErrActionMismatch = errors.New("orchard: action does not match its note")

// Note is an Orchard note. Rho is the nullifier of the spent note of the
// same action.
type Note struct {
	Recipient Address
	Value     uint64
	Rho       [32]byte
	Rseed     [32]byte
}

func (n Note) prf(t byte) [64]byte {
	return crypto.PRFExpand(n.Rseed[:], []byte{t}, n.Rho[:])
}

func (n Note) Esk() field.Fv { return field.FvFromWideLE(n.prf(0x04)) }

func (n Note) Rcm() field.Fv { return field.FvFromWideLE(n.prf(0x05)) }

func (n Note) Psi() field.Fp { return field.FpFromWideLE(n.prf(0x09)) }

// commitment is NoteCommit^Orchard_rcm(repr(g_d), pk_d, v, rho, psi).
func (n Note) commitment(gd pallas.Point) (pallas.Point, error) {
	if _, err := field.FpFromLEBytes(n.Rho); err != nil {
		return pallas.Point{}, fmt.Errorf("rho: %w", err)
	}
	g, psi := gd.Encode(), n.Psi().LEBytes()
	bits := make(crypto.Bits, 0, 256+256+64+255+255)
	bits = bits.AppendBytes(g[:], 256)
	bits = bits.AppendBytes(n.Recipient.PkD[:], 256)
	bits = bits.AppendUint(n.Value, 64)
	bits = bits.AppendBytes(n.Rho[:], 255)
	bits = bits.AppendBytes(psi[:], 255)
	return SinsemillaCommit(noteCommitDomain, bits, n.Rcm())
}

// CompactAction holds the output half of an action as light clients see it.
type CompactAction struct {
	Cmx        [32]byte
	Epk        [32]byte
	Ciphertext [crypto.CompactCiphertextSize]byte
}

// Bytes returns cmx || epk || ciphertext.
func (c CompactAction) Bytes() []byte {
	out := make([]byte, 0, 32+32+crypto.CompactCiphertextSize)
	out = append(out, c.Cmx[:]...)
	out = append(out, c.Epk[:]...)
	return append(out, c.Ciphertext[:]...)
}

// Encrypt computes cmx, epk and the compact ciphertext of n.
func (n Note) Encrypt() (CompactAction, error) {
	out, _, err := n.encrypt()
	return out, err
}

// EncryptWithMemo is Encrypt that also returns the full enc_ciphertext.
func (n Note) EncryptWithMemo(memo [crypto.MemoSize]byte) (CompactAction, []byte, error) {
	out, key, err := n.encrypt()
	if err != nil {
		return CompactAction{}, nil, err
	}
	enc, err := crypto.SealNote(key, crypto.CompactPlaintext(n.Recipient.Diversifier, n.Value, n.Rseed), memo)
	if err != nil {
		return CompactAction{}, nil, err
	}
	return out, enc, nil
}

func (n Note) encrypt() (CompactAction, [32]byte, error) {
	gd, err := DiversifyHash(n.Recipient.Diversifier)
	if err != nil {
		return CompactAction{}, [32]byte{}, err
	}
	pkd, err := pallas.Decode(n.Recipient.PkD)
	if err != nil {
		return CompactAction{}, [32]byte{}, fmt.Errorf("pk_d: %w", err)
	}

	cm, err := n.commitment(gd)
	if err != nil {
		return CompactAction{}, [32]byte{}, err
	}
	x, _, err := cm.ToAffine()
	if err != nil {
		return CompactAction{}, [32]byte{}, fmt.Errorf("note commitment: %w", err)
	}

	esk := n.Esk()
	out := CompactAction{Cmx: x.LEBytes(), Epk: gd.ScalarMul(esk).Encode()}
	shared := pkd.ScalarMul(esk).Encode()
	key := crypto.Blake2b256(crypto.OrchardKDFPersonalization, shared[:], out.Epk[:])

	out.Ciphertext = crypto.CompactPlaintext(n.Recipient.Diversifier, n.Value, n.Rseed)
	if err := crypto.XORNoteStream(key, out.Ciphertext[:]); err != nil {
		return CompactAction{}, [32]byte{}, err
	}
	return out, key, nil
}

// VerifyAction re-encrypts n and checks the claimed epk and ciphertext.
func (n Note) VerifyAction(epk [32]byte, ciphertext [crypto.CompactCiphertextSize]byte) (CompactAction, error) {
	out, err := n.Encrypt()
	if err != nil {
		return CompactAction{}, err
	}
	if out.Epk != epk {
		return CompactAction{}, fmt.Errorf("%w: epk", ErrActionMismatch)
	}
	if out.Ciphertext != ciphertext {
		return CompactAction{}, fmt.Errorf("%w: ciphertext", ErrActionMismatch)
	}
	return out, nil
}
