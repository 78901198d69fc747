package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// CompactCiphertextSize is the length of lead byte || d || v || rseed.
	CompactCiphertextSize = 1 + DiversifierSize + 8 + 32

	// MemoSize is the length of the memo field.
	MemoSize = 512

	// NoteCiphertextSize is the length of a full enc_ciphertext.
	NoteCiphertextSize = CompactCiphertextSize + MemoSize + chacha20poly1305.Overhead

	// NoteLeadByte marks a ZIP-212 note plaintext.
	NoteLeadByte = 0x02
)

// CompactPlaintext is the part of a note plaintext light clients decrypt.
func CompactPlaintext(d [DiversifierSize]byte, value uint64, rseed [32]byte) [CompactCiphertextSize]byte {
	var pt [CompactCiphertextSize]byte
	pt[0] = NoteLeadByte
	copy(pt[1:12], d[:])
	binary.LittleEndian.PutUint64(pt[12:20], value)
	copy(pt[20:], rseed[:])
	return pt
}

// XORNoteStream applies the ChaCha20 keystream that ChaCha20-Poly1305 uses
// for the message body: zero nonce, block counter 1.
func XORNoteStream(key [32]byte, buf []byte) error {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return err
	}
	c.SetCounter(1)
	c.XORKeyStream(buf, buf)
	return nil
}

// SealNote encrypts compact || memo with ChaCha20-Poly1305 under key and the
// all-zero nonce, giving the full enc_ciphertext. Its first
// CompactCiphertextSize bytes equal what XORNoteStream produces.
func SealNote(key [32]byte, compact [CompactCiphertextSize]byte, memo [MemoSize]byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	pt := make([]byte, 0, CompactCiphertextSize+MemoSize)
	pt = append(pt, compact[:]...)
	pt = append(pt, memo[:]...)
	var nonce [chacha20poly1305.NonceSize]byte
	return aead.Seal(nil, nonce[:], pt, nil), nil
}
