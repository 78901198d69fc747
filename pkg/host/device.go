// Package host drives the signer from the wallet side.
//
// A transaction goes through the roles
//   - Constructor: builds a tx.Transaction from inputs, outputs and note
//     plaintexts, completing commitments and note ciphertexts
//   - Signer: runs one device session over it and collects the
//     authorizing signatures
//   - SpendFinalizer: turns transparent signatures into scriptSigs
//   - TxExtractor: serializes the authorized v5 transaction
//
// The device is reached through a Transport that carries raw APDUs, so the
// same code drives an in-process apdu.Dispatcher or a remote one.
package host

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/zcash-signer/pkg/apdu"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// Transport carries one command APDU and returns the response APDU.
type Transport interface {
	Exchange(command []byte) ([]byte, error)
}

// Local is a Transport to a dispatcher in the same process.
type Local struct {
	Dispatcher *apdu.Dispatcher
}

func (l Local) Exchange(command []byte) ([]byte, error) {
	return l.Dispatcher.Exchange(command), nil
}

// Device issues typed commands over a Transport.
type Device struct {
	t   Transport
	log log.Logger
}

// NewDevice returns a Device talking over t.
func NewDevice(t Transport) *Device {
	return &Device{t: t, log: log.New("module", "host")}
}

// exchange sends one command and returns its payload. A status other than
// 0x9000 is returned as *apdu.StatusError.
func (d *Device) exchange(ins apdu.Instruction, p1 byte, data []byte) ([]byte, error) {
	raw, err := apdu.NewCommand(ins, p1, 0, data).Bytes()
	if err != nil {
		return nil, err
	}
	d.log.Trace("APDU sent", "ins", ins, "apdu", hex.EncodeToString(raw))
	reply, err := d.t.Exchange(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ins, err)
	}
	resp, err := apdu.ParseResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ins, err)
	}
	d.log.Trace("APDU received", "ins", ins, "sw", resp.Status, "len", len(resp.Data))
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ins, err)
	}
	return resp.Data, nil
}

func (d *Device) fixed(ins apdu.Instruction, p1 byte, data []byte, size int) ([]byte, error) {
	out, err := d.exchange(ins, p1, data)
	if err != nil {
		return nil, err
	}
	if len(out) != size {
		return nil, fmt.Errorf("%s: got %d bytes, want %d", ins, len(out), size)
	}
	return out, nil
}

// Version returns major, minor and patch.
func (d *Device) Version() ([3]byte, error) {
	out, err := d.fixed(apdu.InsGetVersion, 0, nil, 3)
	if err != nil {
		return [3]byte{}, err
	}
	return [3]byte(out), nil
}

func (d *Device) AppName() (string, error) {
	out, err := d.exchange(apdu.InsGetAppName, 0, nil)
	return string(out), err
}

// Initialize loads account.
func (d *Device) Initialize(account uint8) error {
	_, err := d.exchange(apdu.InsInitialize, account, nil)
	return err
}

// SaplingFVK returns ak || nk || ovk || dk.
func (d *Device) SaplingFVK() ([128]byte, error) {
	out, err := d.fixed(apdu.InsGetFVK, 0, nil, 128)
	if err != nil {
		return [128]byte{}, err
	}
	return [128]byte(out), nil
}

// OrchardFVK returns ak || nk || rivk.
func (d *Device) OrchardFVK() ([96]byte, error) {
	out, err := d.fixed(apdu.InsGetOFVK, 0, nil, 96)
	if err != nil {
		return [96]byte{}, err
	}
	return [96]byte(out), nil
}

// PublicKey returns the transparent public key and the raw default Sapling
// address. With display set the device asks the user to confirm them.
func (d *Device) PublicKey(display bool) (pub [33]byte, addr [tx.AddressSize]byte, err error) {
	var p1 byte
	if display {
		p1 = 1
	}
	out, err := d.fixed(apdu.InsGetPubkey, p1, nil, 33+tx.AddressSize)
	if err != nil {
		return pub, addr, err
	}
	return [33]byte(out[:33]), [tx.AddressSize]byte(out[33:]), nil
}

// ProofGenerationKey returns ak || nsk.
func (d *Device) ProofGenerationKey() ([64]byte, error) {
	out, err := d.fixed(apdu.InsGetProofgenKey, 0, nil, 64)
	if err != nil {
		return [64]byte{}, err
	}
	return [64]byte(out), nil
}

// InitTx starts a transaction and returns mseed.
func (d *Device) InitTx(header [32]byte) ([32]byte, error) {
	out, err := d.fixed(apdu.InsInitTx, 0, header[:], 32)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(out), nil
}

func (d *Device) ChangeStage(s signer.Stage) error {
	_, err := d.exchange(apdu.InsChangeStage, byte(s), nil)
	return err
}

func (d *Device) AddTransparentInput(amount uint64) error {
	_, err := d.exchange(apdu.InsAddTIn, 0, tx.AmountBytes(amount))
	return err
}

func (d *Device) SetTransparentProofs(p tx.TransparentProofs) error {
	_, err := d.exchange(apdu.InsSetTMerkleProof, 0, p.Bytes())
	return err
}

func (d *Device) AddTransparentOutput(r tx.TransparentOutputRecord) error {
	_, err := d.exchange(apdu.InsAddTOut, 0, r.Bytes())
	return err
}

func (d *Device) AddSaplingOutput(r tx.SaplingOutputRecord) error {
	_, err := d.exchange(apdu.InsAddSOut, 0, r.Bytes())
	return err
}

func (d *Device) SetSaplingNet(v int64) error {
	_, err := d.exchange(apdu.InsSetSNet, 0, tx.AmountBytes(uint64(v)))
	return err
}

func (d *Device) SetSaplingProofs(p tx.SaplingProofs) error {
	_, err := d.exchange(apdu.InsSetSMerkleProof, 0, p.Bytes())
	return err
}

func (d *Device) AddOrchardAction(r tx.OrchardActionRecord) error {
	_, err := d.exchange(apdu.InsAddOOut, 0, r.Bytes())
	return err
}

func (d *Device) SetOrchardNet(v int64) error {
	_, err := d.exchange(apdu.InsSetONet, 0, tx.AmountBytes(uint64(v)))
	return err
}

func (d *Device) SetOrchardProofs(p tx.OrchardProofs) error {
	_, err := d.exchange(apdu.InsSetOMerkleProof, 0, p.Bytes())
	return err
}

func (d *Device) ConfirmFee() error {
	_, err := d.exchange(apdu.InsConfirmFee, 0, nil)
	return err
}

func (d *Device) Sighash() ([32]byte, error) {
	out, err := d.fixed(apdu.InsGetSighash, 0, nil, 32)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(out), nil
}

// SignTransparent returns the DER signature for the input whose txin digest
// is txin.
func (d *Device) SignTransparent(txin [32]byte) ([]byte, error) {
	return d.exchange(apdu.InsSignTransparent, 0, txin[:])
}

func (d *Device) SignSapling() ([64]byte, error) {
	out, err := d.fixed(apdu.InsSignSapling, 0, nil, 64)
	if err != nil {
		return [64]byte{}, err
	}
	return [64]byte(out), nil
}

func (d *Device) SignOrchard() ([64]byte, error) {
	out, err := d.fixed(apdu.InsSignOrchard, 0, nil, 64)
	if err != nil {
		return [64]byte{}, err
	}
	return [64]byte(out), nil
}

func (d *Device) EndTx() error {
	_, err := d.exchange(apdu.InsEndTx, 0, nil)
	return err
}

// SelfTest runs the TEST_MATH selectors and returns their outputs.
func (d *Device) SelfTest() ([][]byte, error) {
	var out [][]byte
	for sel := byte(0); sel < 3; sel++ {
		res, err := d.exchange(apdu.InsTestMath, sel, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
