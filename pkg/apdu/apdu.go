// Package apdu is the command front end of the signer: it decodes
// ISO 7816-4 style command APDUs, checks their shape against a fixed table
// and routes them to the signing session.
package apdu

import (
	"errors"
	"fmt"
)

// Class is the CLA byte every command must carry.
const Class byte = 0xE0

// headerSize is CLA INS P1 P2 Lc.
const headerSize = 5

// MaxDataSize is the largest payload a short APDU can carry.
const MaxDataSize = 0xFF

// Instruction is the INS byte of a command.
type Instruction byte

const (
	InsGetVersion       Instruction = 0x03 // Returns major, minor and patch
	InsGetAppName       Instruction = 0x04 // Returns the application name
	InsInitialize       Instruction = 0x05 // Loads the keys of account P1
	InsGetFVK           Instruction = 0x06 // Sapling full viewing key ak || nk || ovk || dk
	InsGetPubkey        Instruction = 0x07 // Transparent public key || Sapling address, P1 = 1 to display
	InsGetOFVK          Instruction = 0x08 // Orchard full viewing key ak || nk || rivk
	InsInitTx           Instruction = 0x10 // Starts a transaction from its header digest, returns mseed
	InsChangeStage      Instruction = 0x11 // Advances the session to stage P1
	InsSetTMerkleProof  Instruction = 0x12 // prevouts || script pubkeys || sequence digests
	InsSetSMerkleProof  Instruction = 0x13 // spends || memos || non-compact outputs digests
	InsSetOMerkleProof  Instruction = 0x14 // memos || non-compact actions digests || anchor
	InsAddTIn           Instruction = 0x15
	InsAddTOut          Instruction = 0x16
	InsAddSOut          Instruction = 0x17
	InsSetSNet          Instruction = 0x18
	InsAddOOut          Instruction = 0x19
	InsSetONet          Instruction = 0x1A
	InsConfirmFee       Instruction = 0x1B
	InsGetSighash       Instruction = 0x20
	InsGetProofgenKey   Instruction = 0x21 // ak || nsk
	InsSignTransparent  Instruction = 0x22
	InsSignSapling      Instruction = 0x23
	InsSignOrchard      Instruction = 0x24
	InsEndTx            Instruction = 0x30
	InsTestCmu          Instruction = 0x80
	InsTestJubjubHash   Instruction = 0x81
	InsTestPedersenHash Instruction = 0x82
	InsTestMath         Instruction = 0xFF
)

var instructionNames = map[Instruction]string{
	InsGetVersion:       "GET_VERSION",
	InsGetAppName:       "GET_APP_NAME",
	InsInitialize:       "INITIALIZE",
	InsGetFVK:           "GET_FVK",
	InsGetPubkey:        "GET_PUBKEY",
	InsGetOFVK:          "GET_OFVK",
	InsInitTx:           "INIT_TX",
	InsChangeStage:      "CHANGE_STAGE",
	InsSetTMerkleProof:  "SET_T_MERKLE_PROOF",
	InsSetSMerkleProof:  "SET_S_MERKLE_PROOF",
	InsSetOMerkleProof:  "SET_O_MERKLE_PROOF",
	InsAddTIn:           "ADD_T_IN",
	InsAddTOut:          "ADD_T_OUT",
	InsAddSOut:          "ADD_S_OUT",
	InsSetSNet:          "SET_S_NET",
	InsAddOOut:          "ADD_O_OUT",
	InsSetONet:          "SET_O_NET",
	InsConfirmFee:       "CONFIRM_FEE",
	InsGetSighash:       "GET_SIGHASH",
	InsGetProofgenKey:   "GET_PROOFGEN_KEY",
	InsSignTransparent:  "SIGN_TRANSPARENT",
	InsSignSapling:      "SIGN_SAPLING",
	InsSignOrchard:      "SIGN_ORCHARD",
	InsEndTx:            "END_TX",
	InsTestCmu:          "TEST_CMU",
	InsTestJubjubHash:   "TEST_JUBJUB_HASH",
	InsTestPedersenHash: "TEST_PEDERSEN_HASH",
	InsTestMath:         "TEST_MATH",
}

func (i Instruction) String() string {
	if name, ok := instructionNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(%#02x)", byte(i))
}

// StatusWord is the SW1 SW2 trailer of a response.
type StatusWord uint16

const (
	SWOK               StatusWord = 0x9000
	SWClaNotSupported  StatusWord = 0x6E00
	SWInsNotSupported  StatusWord = 0x6D00
	SWWrongP1P2        StatusWord = 0x6A86
	SWWrongDataLength  StatusWord = 0x6A87
	SWInvalidData      StatusWord = 0x6A80
	SWDenied           StatusWord = 0x6985
	SWKeyUnavailable   StatusWord = 0x6A88
	SWIntegrityFailure StatusWord = 0x6F00 // Session destroyed
	SWBadState         StatusWord = 0xB007 // Command out of sequence
	SWSignatureFailure StatusWord = 0xB008
)

var statusText = map[StatusWord]string{
	SWOK:               "ok",
	SWClaNotSupported:  "class not supported",
	SWInsNotSupported:  "instruction not supported",
	SWWrongP1P2:        "wrong P1/P2",
	SWWrongDataLength:  "wrong data length",
	SWInvalidData:      "invalid data",
	SWDenied:           "denied by user",
	SWKeyUnavailable:   "key material unavailable",
	SWIntegrityFailure: "integrity failure",
	SWBadState:         "command out of sequence",
	SWSignatureFailure: "signature failure",
}

func (sw StatusWord) String() string {
	if s, ok := statusText[sw]; ok {
		return fmt.Sprintf("%#04x (%s)", uint16(sw), s)
	}
	return fmt.Sprintf("%#04x", uint16(sw))
}

// StatusError is a response whose status word is not SWOK.
type StatusError struct {
	Status StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apdu: status %s", e.Status)
}

var (
	// ErrShortEnvelope is returned for fewer than 5 command bytes or fewer
	// than 2 response bytes.
	ErrShortEnvelope = errors.New("apdu: envelope too short")
	// ErrLengthMismatch is returned when Lc disagrees with the payload.
	ErrLengthMismatch = errors.New("apdu: Lc does not match payload length")
	// ErrDataTooLong is returned when encoding a payload over MaxDataSize.
	ErrDataTooLong = errors.New("apdu: payload exceeds 255 bytes")
)

// Command is a decoded command APDU.
type Command struct {
	Class byte
	Ins   Instruction
	P1    byte
	P2    byte
	Data  []byte
}

// NewCommand returns a command in the signer's class.
func NewCommand(ins Instruction, p1, p2 byte, data []byte) Command {
	return Command{Class: Class, Ins: ins, P1: p1, P2: p2, Data: data}
}

// ParseCommand decodes raw. Data aliases raw.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < headerSize {
		return Command{}, fmt.Errorf("%w: %d bytes", ErrShortEnvelope, len(raw))
	}
	lc := int(raw[4])
	if lc != len(raw)-headerSize {
		return Command{}, fmt.Errorf("%w: Lc %d, payload %d", ErrLengthMismatch, lc, len(raw)-headerSize)
	}
	return Command{
		Class: raw[0],
		Ins:   Instruction(raw[1]),
		P1:    raw[2],
		P2:    raw[3],
		Data:  raw[headerSize:],
	}, nil
}

// Bytes encodes c as CLA INS P1 P2 Lc data.
func (c Command) Bytes() ([]byte, error) {
	if len(c.Data) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d", ErrDataTooLong, len(c.Data))
	}
	out := make([]byte, 0, headerSize+len(c.Data))
	out = append(out, c.Class, byte(c.Ins), c.P1, c.P2, byte(len(c.Data)))
	return append(out, c.Data...), nil
}

// Response is a decoded response APDU.
type Response struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse splits raw into payload and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, fmt.Errorf("%w: %d bytes", ErrShortEnvelope, len(raw))
	}
	n := len(raw) - 2
	return Response{
		Data:   raw[:n],
		Status: StatusWord(uint16(raw[n])<<8 | uint16(raw[n+1])),
	}, nil
}

// Bytes encodes r as data || SW1 SW2.
func (r Response) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, byte(r.Status>>8), byte(r.Status))
}

// Err returns a *StatusError unless r carries SWOK.
func (r Response) Err() error {
	if r.Status != SWOK {
		return &StatusError{Status: r.Status}
	}
	return nil
}
