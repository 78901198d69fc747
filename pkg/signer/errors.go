package signer

import (
	"errors"
	"fmt"
)

// SequenceError is returned when a command arrives in a stage that does not
// accept it. The session is left exactly as it was.
type SequenceError struct {
	Code    string // Error code (e.g., ErrWrongStage)
	Stage   Stage  // Stage the session was in
	Message string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence error [%s] in stage %s: %s", e.Code, e.Stage, e.Message)
}

// ValidationError is returned when a command is well formed but its content
// is rejected (bad amount, output that does not match its note, ...). The
// session is left exactly as it was.
type ValidationError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error [%s]: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// IntegrityError is returned when the key material fails a self-consistency
// check. The session has been zeroized and is back in Idle.
type IntegrityError struct {
	Message string
	Cause   error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("integrity error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("integrity error: %s", e.Message)
}

func (e *IntegrityError) Unwrap() error { return e.Cause }

// SignatureError is returned when a signature cannot be produced.
type SignatureError struct {
	Pool    string // "transparent", "sapling" or "orchard"
	Message string
	Cause   error
}

func (e *SignatureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s signature error: %s: %v", e.Pool, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s signature error: %s", e.Pool, e.Message)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

var (
	// ErrRejected is returned when the user declines a confirmation.
	ErrRejected = errors.New("signer: rejected by user")

	// ErrNoAccount is returned when a command needs keys before an account
	// was initialized.
	ErrNoAccount = errors.New("signer: no account initialized")
)

// Error codes for SequenceError and ValidationError.
const (
	ErrWrongStage          = "WRONG_STAGE"          // Command not accepted in the current stage
	ErrBackwardStage       = "BACKWARD_STAGE"       // CHANGE_STAGE to the current or an earlier stage
	ErrAlreadySet          = "ALREADY_SET"          // Proof bundle or fee already installed
	ErrMissingProofs       = "MISSING_PROOFS"       // Leaving a stage that needs its proof bundle
	ErrFeeNotConfirmed     = "FEE_NOT_CONFIRMED"    // Leaving FEE without a confirmed fee
	ErrNoTransparentInputs = "NO_TRANSPARENT_INPUT" // SIGN_TRANSPARENT in a transaction without inputs
	ErrInvalidAmount       = "INVALID_AMOUNT"       // Amount or balance outside the money range
	ErrNegativeFee         = "NEGATIVE_FEE"         // Balances add up to a negative fee
	ErrInvalidOutput       = "INVALID_OUTPUT"       // Shielded output does not match its note
	ErrEmptyBundle         = "EMPTY_BUNDLE"         // Value balance for a pool with no spends or outputs
)
