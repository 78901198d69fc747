// Package signer implements the transaction signing state machine.
//
// A Session walks the stages
//
//	IDLE → T_IN → T_OUT → S_OUT → S_NET → O_OUT → O_NET → FEE → SIGN
//
// Each stage accepts its own item commands, which fold fixed-size records
// into running ZIP 244 digests or record value balances and proof digests.
// Entering SIGN combines them with the header digest given to Begin into the
// shielded sighash, which SignSapling and SignOrchard sign with randomized
// spend authorization keys.
//
// A command that arrives in the wrong stage, or whose content is rejected,
// returns an error and leaves the session as it was. Begin always discards
// the previous session and zeroizes its key material.
package signer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/field"
	"github.com/suffix-labs/zcash-signer/pkg/orchard"
	"github.com/suffix-labs/zcash-signer/pkg/sapling"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// Config configures a Session.
type Config struct {
	// ConsensusBranchID personalizes the sighash.
	ConsensusBranchID uint32

	// Approver confirms the fee. A nil Approver rejects.
	Approver Approver

	// Rand supplies mseed and signature randomness. Defaults to crypto/rand.
	Rand io.Reader

	Logger log.Logger
}

// Session is the context of one transaction signing session.
type Session struct {
	branchID uint32
	approver Approver
	rand     io.Reader
	log      log.Logger

	stage  Stage
	header [32]byte
	hasher hash.Hash // sighash, seeded with the header digest

	amounts  hash.Hash // T_IN amounts
	tOutputs hash.Hash // T_OUT outputs
	sCompact hash.Hash // S_OUT cmu || epk || enc[..52]
	oCompact hash.Hash // O_OUT nf || cmx || epk || enc[..52]

	tInputs   int
	tOutputsN int
	sOutputs  int
	oActions  int

	tInTotal  uint64
	tOutTotal uint64
	sOutTotal uint64
	oOutTotal uint64
	sNet      int64
	oNet      int64

	feeConfirmed bool

	tProofs *tx.TransparentProofs
	sProofs *tx.SaplingProofs
	oProofs *tx.OrchardProofs

	// Computed on entering SIGN.
	amountsDigest  [32]byte
	tOutputsDigest [32]byte
	saplingDigest  [32]byte
	orchardDigest  [32]byte
	sighash        [32]byte

	ask           field.Fr
	orchardAsk    field.Fv
	tsk           *crypto.PrivateKey
	mseed         [32]byte
	saplingAlphas *AlphaStream
	orchardAlphas *AlphaStream
}

// NewSession returns an idle session.
func NewSession(cfg Config) *Session {
	s := &Session{
		branchID: cfg.ConsensusBranchID,
		approver: cfg.Approver,
		rand:     cfg.Rand,
		log:      cfg.Logger,
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if s.log == nil {
		s.log = log.New("module", "signer")
	}
	return s
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	return s.stage
}

// reset zeroizes the key material and returns the session to Idle.
func (s *Session) reset() {
	s.ask = field.Fr{}
	s.orchardAsk = field.Fv{}
	if s.tsk != nil {
		s.tsk.Zero()
	}
	clear(s.mseed[:])
	s.saplingAlphas.Zero()
	s.orchardAlphas.Zero()

	*s = Session{
		branchID: s.branchID,
		approver: s.approver,
		rand:     s.rand,
		log:      s.log,
	}
}

// Begin discards any session in progress, copies the spend authorization
// keys of acct and starts a transaction whose header digest is header. It
// returns mseed, the seed of the spend randomizers, which the host needs to
// build rk for every spend.
func (s *Session) Begin(acct *Account, header [32]byte) ([32]byte, error) {
	s.reset()
	if acct == nil {
		return [32]byte{}, ErrNoAccount
	}

	ak := sapling.SpendAuthGenerator().ScalarMul(acct.secrets.Sapling.Ask)
	if !ak.Equal(acct.saplingFVK.Ak) {
		return [32]byte{}, &IntegrityError{Message: "sapling ask does not match ak"}
	}
	oak := orchard.SpendAuthGenerator().ScalarMul(acct.orchardAsk)
	if !oak.Equal(acct.orchardFVK.Ak) {
		return [32]byte{}, &IntegrityError{Message: "orchard ask does not match ak"}
	}

	tsk, err := crypto.PrivateKeyFromBytes(acct.secrets.Transparent[:])
	if err != nil {
		return [32]byte{}, &IntegrityError{Message: "transparent key", Cause: err}
	}
	if tsk.PublicKey().SerializeCompressed() != acct.TransparentPubKey() {
		tsk.Zero()
		return [32]byte{}, &IntegrityError{Message: "transparent key does not match its public key"}
	}

	var mseed [32]byte
	if _, err := io.ReadFull(s.rand, mseed[:]); err != nil {
		tsk.Zero()
		return [32]byte{}, fmt.Errorf("mseed: %w", err)
	}

	s.ask = acct.secrets.Sapling.Ask
	s.orchardAsk = acct.orchardAsk
	s.tsk = tsk
	s.mseed = mseed
	s.saplingAlphas = NewSaplingAlphas(mseed)
	s.orchardAlphas = NewOrchardAlphas(mseed)

	s.header = header
	s.hasher = crypto.NewDigest(crypto.TxHashPersonalization(s.branchID))
	s.hasher.Write(header[:])
	s.amounts = crypto.NewDigest(crypto.AmountsDigestPersonalization)
	s.tOutputs = crypto.NewDigest(crypto.OutputsDigestPersonalization)
	s.sCompact = crypto.NewDigest(crypto.SaplingOutputsCompactPersonalization)
	s.oCompact = crypto.NewDigest(crypto.OrchardActionsCompactPersonalization)

	s.stage = TransparentIn
	s.log.Info("Transaction started", "account", acct.Index, "branch", fmt.Sprintf("%08x", s.branchID))
	return mseed, nil
}

// End zeroizes the session and returns it to Idle.
func (s *Session) End() {
	s.reset()
	s.log.Debug("Transaction ended")
}

func (s *Session) expect(stage Stage, command string) error {
	if s.stage != stage {
		return &SequenceError{
			Code:    ErrWrongStage,
			Stage:   s.stage,
			Message: fmt.Sprintf("%s requires stage %s", command, stage),
		}
	}
	return nil
}

func invalidAmount(format string, args ...any) error {
	return &ValidationError{Code: ErrInvalidAmount, Message: fmt.Sprintf(format, args...)}
}

// addMoney returns total + v, rejecting results above MaxMoney.
func addMoney(total, v uint64, what string) (uint64, error) {
	if v > tx.MaxMoney || total > tx.MaxMoney-v {
		return 0, invalidAmount("%s total exceeds %d", what, tx.MaxMoney)
	}
	return total + v, nil
}

func checkBalance(v int64, what string) error {
	if v > int64(tx.MaxMoney) || v < -int64(tx.MaxMoney) {
		return invalidAmount("%s %d outside ±%d", what, v, tx.MaxMoney)
	}
	return nil
}

// AddTransparentInput folds the amount of a transparent input into the
// amounts digest.
func (s *Session) AddTransparentInput(amount uint64) error {
	if err := s.expect(TransparentIn, "ADD_T_IN"); err != nil {
		return err
	}
	total, err := addMoney(s.tInTotal, amount, "transparent input")
	if err != nil {
		return err
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], amount)
	s.amounts.Write(b[:])
	s.tInTotal = total
	s.tInputs++
	s.log.Trace("Transparent input", "index", s.tInputs-1, "amount", amount)
	return nil
}

// SetTransparentProofs installs the prevouts, scriptPubKeys and sequence
// digests of the transparent inputs. It may be called once per session.
func (s *Session) SetTransparentProofs(p tx.TransparentProofs) error {
	if err := s.expect(TransparentIn, "SET_T_MERKLE_PROOF"); err != nil {
		return err
	}
	if s.tProofs != nil {
		return &SequenceError{Code: ErrAlreadySet, Stage: s.stage, Message: "transparent proofs already set"}
	}
	s.tProofs = &p
	return nil
}

// AddTransparentOutput folds an output into the outputs digest.
func (s *Session) AddTransparentOutput(r tx.TransparentOutputRecord) error {
	if err := s.expect(TransparentOut, "ADD_T_OUT"); err != nil {
		return err
	}
	total, err := addMoney(s.tOutTotal, r.Value, "transparent output")
	if err != nil {
		return err
	}
	crypto.WriteTransparentOutput(s.tOutputs, r.Value, r.ScriptPubKey())
	s.tOutTotal = total
	s.tOutputsN++
	s.log.Trace("Transparent output", "index", s.tOutputsN-1, "value", r.Value)
	return nil
}

// AddSaplingOutput checks that the record's epk and compact ciphertext
// encrypt the note it describes, computes the note commitment and folds
// cmu || epk || enc[..52] into the compact outputs digest.
func (s *Session) AddSaplingOutput(r tx.SaplingOutputRecord) error {
	if err := s.expect(SaplingOut, "ADD_S_OUT"); err != nil {
		return err
	}
	total, err := addMoney(s.sOutTotal, r.Value, "sapling output")
	if err != nil {
		return err
	}
	addr, err := sapling.ParsePaymentAddress(r.Address)
	if err != nil {
		return &ValidationError{Code: ErrInvalidOutput, Message: "sapling recipient", Cause: err}
	}
	note := sapling.Note{Recipient: addr, Value: r.Value, Rseed: r.Rseed}
	out, err := note.VerifyOutput(r.Epk, r.Ciphertext)
	if err != nil {
		return &ValidationError{Code: ErrInvalidOutput, Message: "sapling output", Cause: err}
	}
	s.sCompact.Write(out.Bytes())
	s.sOutTotal = total
	s.sOutputs++
	s.log.Trace("Sapling output", "index", s.sOutputs-1, "value", r.Value)
	return nil
}

// SetSaplingNet records the Sapling value balance.
func (s *Session) SetSaplingNet(v int64) error {
	if err := s.expect(SaplingNet, "SET_S_NET"); err != nil {
		return err
	}
	if err := checkBalance(v, "sapling net"); err != nil {
		return err
	}
	s.sNet = v
	return nil
}

// SetSaplingProofs installs the spends, memos and noncompact digests of the
// Sapling bundle. It may be called once per session.
func (s *Session) SetSaplingProofs(p tx.SaplingProofs) error {
	if err := s.expect(SaplingNet, "SET_S_MERKLE_PROOF"); err != nil {
		return err
	}
	if s.sProofs != nil {
		return &SequenceError{Code: ErrAlreadySet, Stage: s.stage, Message: "sapling proofs already set"}
	}
	s.sProofs = &p
	return nil
}

// AddOrchardAction checks the output half of an action like
// AddSaplingOutput does, with rho taken from the action's nullifier, and
// folds nf || cmx || epk || enc[..52] into the compact actions digest.
func (s *Session) AddOrchardAction(r tx.OrchardActionRecord) error {
	if err := s.expect(OrchardOut, "ADD_O_OUT"); err != nil {
		return err
	}
	total, err := addMoney(s.oOutTotal, r.Value, "orchard output")
	if err != nil {
		return err
	}
	addr, err := orchard.ParseAddress(r.Address)
	if err != nil {
		return &ValidationError{Code: ErrInvalidOutput, Message: "orchard recipient", Cause: err}
	}
	note := orchard.Note{Recipient: addr, Value: r.Value, Rho: r.Nullifier, Rseed: r.Rseed}
	out, err := note.VerifyAction(r.Epk, r.Ciphertext)
	if err != nil {
		return &ValidationError{Code: ErrInvalidOutput, Message: "orchard action", Cause: err}
	}
	s.oCompact.Write(r.Nullifier[:])
	s.oCompact.Write(out.Bytes())
	s.oOutTotal = total
	s.oActions++
	s.log.Trace("Orchard action", "index", s.oActions-1, "value", r.Value)
	return nil
}

// SetOrchardNet records the Orchard value balance.
func (s *Session) SetOrchardNet(v int64) error {
	if err := s.expect(OrchardNet, "SET_O_NET"); err != nil {
		return err
	}
	if err := checkBalance(v, "orchard net"); err != nil {
		return err
	}
	s.oNet = v
	return nil
}

// SetOrchardProofs installs the memos and noncompact digests and the anchor
// of the Orchard bundle. It may be called once per session.
func (s *Session) SetOrchardProofs(p tx.OrchardProofs) error {
	if err := s.expect(OrchardNet, "SET_O_MERKLE_PROOF"); err != nil {
		return err
	}
	if s.oProofs != nil {
		return &SequenceError{Code: ErrAlreadySet, Stage: s.stage, Message: "orchard proofs already set"}
	}
	s.oProofs = &p
	return nil
}

func (s *Session) transparentNet() int64 {
	return int64(s.tInTotal) - int64(s.tOutTotal)
}

// summary computes the fee from the three value balances.
func (s *Session) summary() FeeSummary {
	tNet := s.transparentNet()
	return FeeSummary{
		Fee:                tNet + s.sNet + s.oNet,
		TransparentOutputs: s.tOutTotal,
		SaplingOutputs:     s.sOutTotal,
		OrchardOutputs:     s.oOutTotal,
		TransparentNet:     tNet,
		SaplingNet:         s.sNet,
		OrchardNet:         s.oNet,
	}
}

// ConfirmFee asks the Approver to accept the fee. A rejection returns
// ErrRejected and leaves the fee unconfirmed.
func (s *Session) ConfirmFee() (FeeSummary, error) {
	if err := s.expect(Fee, "CONFIRM_FEE"); err != nil {
		return FeeSummary{}, err
	}
	if s.feeConfirmed {
		return FeeSummary{}, &SequenceError{Code: ErrAlreadySet, Stage: s.stage, Message: "fee already confirmed"}
	}
	sum := s.summary()
	if sum.Fee < 0 {
		return FeeSummary{}, &ValidationError{
			Code:    ErrNegativeFee,
			Message: fmt.Sprintf("balances add up to %d", sum.Fee),
		}
	}
	if s.approver == nil || !s.approver.ConfirmFee(sum) {
		s.log.Info("Fee rejected", "fee", sum.Fee)
		return FeeSummary{}, ErrRejected
	}
	s.feeConfirmed = true
	s.log.Info("Fee confirmed", "fee", sum.Fee)
	return sum, nil
}

// emptySaplingSpends is the spends digest of a bundle without spends.
var emptySaplingSpends = crypto.EmptyDigest(crypto.SaplingSpendsDigestPersonalization)

func (s *Session) hasSaplingBundle() bool {
	return s.sOutputs > 0 || (s.sProofs != nil && s.sProofs.Spends != emptySaplingSpends)
}

// checkExit reports whether the session may leave stage.
func (s *Session) checkExit(stage Stage) error {
	missing := func(what string) error {
		return &SequenceError{Code: ErrMissingProofs, Stage: s.stage, Message: what + " proofs not set"}
	}
	switch stage {
	case Idle:
		return &SequenceError{Code: ErrWrongStage, Stage: s.stage, Message: "no transaction in progress"}
	case TransparentIn:
		if s.tInputs > 0 && s.tProofs == nil {
			return missing("transparent")
		}
	case SaplingNet:
		if (s.sOutputs > 0 || s.sNet != 0) && s.sProofs == nil {
			return missing("sapling")
		}
		if s.sNet != 0 && !s.hasSaplingBundle() {
			return &ValidationError{Code: ErrEmptyBundle, Message: "sapling net without spends or outputs"}
		}
	case OrchardNet:
		if s.oActions > 0 && s.oProofs == nil {
			return missing("orchard")
		}
		if s.oNet != 0 && s.oActions == 0 {
			return &ValidationError{Code: ErrEmptyBundle, Message: "orchard net without actions"}
		}
	case Fee:
		if !s.feeConfirmed {
			return &SequenceError{Code: ErrFeeNotConfirmed, Stage: s.stage, Message: "fee not confirmed"}
		}
	}
	return nil
}

// ChangeStage moves the session forward to target. Every stage left on the
// way, the current one and any skipped, must satisfy its exit condition;
// otherwise nothing changes. Skipped item stages contribute empty digests.
func (s *Session) ChangeStage(target Stage) error {
	if !target.Valid() || target <= s.stage {
		return &SequenceError{
			Code:    ErrBackwardStage,
			Stage:   s.stage,
			Message: fmt.Sprintf("cannot move to %s", target),
		}
	}
	for st := s.stage; st < target; st++ {
		if err := s.checkExit(st); err != nil {
			return err
		}
	}
	if target == Sign {
		s.finish()
	}
	s.log.Debug("Stage changed", "from", s.stage, "to", target)
	s.stage = target
	return nil
}

// shieldedTransparentDigest is the transparent part of the shielded sighash:
// T.2 without transparent inputs, the SIGHASH_ALL form of S.2 with the empty
// txin digest otherwise.
func (s *Session) shieldedTransparentDigest() [32]byte {
	if s.tInputs == 0 {
		if s.tOutputsN == 0 {
			return crypto.EmptyDigest(crypto.TransparentDigestPersonalization)
		}
		return crypto.TransparentDigest(
			crypto.EmptyDigest(crypto.PrevoutDigestPersonalization),
			crypto.EmptyDigest(crypto.SequenceDigestPersonalization),
			s.tOutputsDigest,
		)
	}
	return s.transparentSigDigest(crypto.EmptyDigest(crypto.TxInDigestPersonalization))
}

func (s *Session) transparentSigDigest(txin [32]byte) [32]byte {
	return crypto.TransparentSigDigest(
		tx.SighashAll,
		s.tProofs.Prevouts,
		s.amountsDigest,
		s.tProofs.ScriptPubKeys,
		s.tProofs.Sequence,
		s.tOutputsDigest,
		txin,
	)
}

func (s *Session) saplingBundleDigest() [32]byte {
	if !s.hasSaplingBundle() {
		return crypto.EmptyDigest(crypto.SaplingDigestPersonalization)
	}
	spends := emptySaplingSpends
	if s.sProofs != nil {
		spends = s.sProofs.Spends
	}
	outputs := crypto.EmptyDigest(crypto.SaplingOutputsDigestPersonalization)
	if s.sOutputs > 0 {
		outputs = crypto.SaplingOutputsDigest(
			crypto.SumDigest(s.sCompact),
			s.sProofs.OutputsMemos,
			s.sProofs.OutputsNoncompact,
		)
	}
	return crypto.SaplingDigest(spends, outputs, s.sNet)
}

func (s *Session) orchardBundleDigest() [32]byte {
	if s.oActions == 0 {
		return crypto.EmptyDigest(crypto.OrchardDigestPersonalization)
	}
	return crypto.OrchardDigest(
		crypto.SumDigest(s.oCompact),
		s.oProofs.ActionsMemos,
		s.oProofs.ActionsNoncompact,
		tx.OrchardFlagsEnabled,
		s.oNet,
		s.oProofs.Anchor,
	)
}

// finish finalizes the per-stage digests and the shielded sighash.
func (s *Session) finish() {
	s.amountsDigest = crypto.SumDigest(s.amounts)
	s.tOutputsDigest = crypto.SumDigest(s.tOutputs)
	s.saplingDigest = s.saplingBundleDigest()
	s.orchardDigest = s.orchardBundleDigest()

	transparent := s.shieldedTransparentDigest()
	s.hasher.Write(transparent[:])
	s.hasher.Write(s.saplingDigest[:])
	s.hasher.Write(s.orchardDigest[:])
	s.sighash = crypto.SumDigest(s.hasher)
	s.log.Debug("Sighash computed", "sighash", fmt.Sprintf("%x", s.sighash))
}

// Sighash returns the shielded sighash.
func (s *Session) Sighash() ([32]byte, error) {
	if err := s.expect(Sign, "GET_SIGHASH"); err != nil {
		return [32]byte{}, err
	}
	return s.sighash, nil
}

// SignSapling signs the sighash with rsk = ask + alpha, alpha being the next
// value of the Sapling randomizer stream. Call it once per Sapling spend, in
// spend order.
func (s *Session) SignSapling() (sapling.Signature, error) {
	if err := s.expect(Sign, "SIGN_SAPLING"); err != nil {
		return sapling.Signature{}, err
	}
	alpha := s.saplingAlphas.NextSapling()
	rsk := sapling.RandomizeKey(s.ask, alpha)
	sig, err := sapling.Sign(rsk, s.sighash[:], s.rand)
	if err != nil {
		return sapling.Signature{}, &SignatureError{Pool: "sapling", Message: "redjubjub", Cause: err}
	}
	return sig, nil
}

// SignOrchard is SignSapling for Orchard actions.
func (s *Session) SignOrchard() (orchard.Signature, error) {
	if err := s.expect(Sign, "SIGN_ORCHARD"); err != nil {
		return orchard.Signature{}, err
	}
	alpha := s.orchardAlphas.NextOrchard()
	rsk := orchard.RandomizeKey(s.orchardAsk, alpha)
	sig, err := orchard.Sign(rsk, s.sighash[:], s.rand)
	if err != nil {
		return orchard.Signature{}, &SignatureError{Pool: "orchard", Message: "redpallas", Cause: err}
	}
	return sig, nil
}

// SignTransparent signs the SIGHASH_ALL digest of the transparent input
// whose txin digest (ZIP 244 S.2g) is txin. It returns a DER signature.
func (s *Session) SignTransparent(txin [32]byte) ([]byte, error) {
	if err := s.expect(Sign, "SIGN_TRANSPARENT"); err != nil {
		return nil, err
	}
	if s.tInputs == 0 {
		return nil, &SequenceError{Code: ErrNoTransparentInputs, Stage: s.stage, Message: "transaction has no transparent inputs"}
	}
	digest := crypto.SignatureDigest(
		s.branchID,
		s.header,
		s.transparentSigDigest(txin),
		s.saplingDigest,
		s.orchardDigest,
	)
	return s.tsk.Sign(digest), nil
}
