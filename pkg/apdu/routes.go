package apdu

import (
	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// route is the accepted shape of one instruction and its handler. P2 is
// always 0.
type route struct {
	p1Min, p1Max byte
	lc           int
	handle       func(d *Dispatcher, cmd Command) ([]byte, error)
}

func (r route) validate(cmd Command) StatusWord {
	if cmd.P1 < r.p1Min || cmd.P1 > r.p1Max || cmd.P2 != 0 {
		return SWWrongP1P2
	}
	if len(cmd.Data) != r.lc {
		return SWWrongDataLength
	}
	return SWOK
}

// Diagnostic payload sizes.
const (
	testCmuSize      = tx.AddressSize + tx.AmountSize + 32
	testPedersenSize = 1 + 32 + 32
)

const anyAccount = 0xFF

var routes = map[Instruction]route{
	InsGetVersion: {lc: 0, handle: (*Dispatcher).getVersion},
	InsGetAppName: {lc: 0, handle: (*Dispatcher).getAppName},
	InsInitialize: {p1Max: anyAccount, lc: 0, handle: (*Dispatcher).initialize},
	InsGetFVK:     {lc: 0, handle: (*Dispatcher).getFVK},
	InsGetPubkey:  {p1Max: 1, lc: 0, handle: (*Dispatcher).getPubkey},
	InsGetOFVK:    {lc: 0, handle: (*Dispatcher).getOFVK},

	InsInitTx:          {lc: 32, handle: (*Dispatcher).initTx},
	InsChangeStage:     {p1Min: byte(signer.TransparentIn), p1Max: byte(signer.Sign), lc: 0, handle: (*Dispatcher).changeStage},
	InsSetTMerkleProof: {lc: tx.ProofBundleSize, handle: (*Dispatcher).setTransparentProofs},
	InsSetSMerkleProof: {lc: tx.ProofBundleSize, handle: (*Dispatcher).setSaplingProofs},
	InsSetOMerkleProof: {lc: tx.ProofBundleSize, handle: (*Dispatcher).setOrchardProofs},
	InsAddTIn:          {lc: tx.AmountSize, handle: (*Dispatcher).addTransparentInput},
	InsAddTOut:         {lc: tx.TransparentOutputRecordSize, handle: (*Dispatcher).addTransparentOutput},
	InsAddSOut:         {lc: tx.SaplingOutputRecordSize, handle: (*Dispatcher).addSaplingOutput},
	InsSetSNet:         {lc: tx.AmountSize, handle: (*Dispatcher).setSaplingNet},
	InsAddOOut:         {lc: tx.OrchardActionRecordSize, handle: (*Dispatcher).addOrchardAction},
	InsSetONet:         {lc: tx.AmountSize, handle: (*Dispatcher).setOrchardNet},
	InsConfirmFee:      {lc: 0, handle: (*Dispatcher).confirmFee},
	InsGetSighash:      {lc: 0, handle: (*Dispatcher).getSighash},
	InsGetProofgenKey:  {lc: 0, handle: (*Dispatcher).getProofgenKey},
	InsSignTransparent: {lc: 32, handle: (*Dispatcher).signTransparent},
	InsSignSapling:     {lc: 0, handle: (*Dispatcher).signSapling},
	InsSignOrchard:     {lc: 0, handle: (*Dispatcher).signOrchard},
	InsEndTx:           {lc: 0, handle: (*Dispatcher).endTx},

	InsTestCmu:          {lc: testCmuSize, handle: (*Dispatcher).testCmu},
	InsTestJubjubHash:   {lc: crypto.DiversifierSize, handle: (*Dispatcher).testJubjubHash},
	InsTestPedersenHash: {lc: testPedersenSize, handle: (*Dispatcher).testPedersenHash},
	InsTestMath:         {p1Max: testMathSelectors - 1, lc: 0, handle: (*Dispatcher).testMath},
}
