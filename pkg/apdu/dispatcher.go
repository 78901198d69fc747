package apdu

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/keys"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// AppInfo is what GET_VERSION and GET_APP_NAME report.
type AppInfo struct {
	Name                string
	Major, Minor, Patch uint8
}

// DefaultAppInfo is used when Config.App is left empty.
var DefaultAppInfo = AppInfo{Name: "Zcash", Major: 1, Minor: 0, Patch: 0}

// Config configures a Dispatcher.
type Config struct {
	ConsensusBranchID uint32
	App               AppInfo

	// Provider supplies account keys to INITIALIZE.
	Provider keys.Provider
	// Approver confirms fees and displayed addresses. A nil Approver
	// rejects both.
	Approver signer.Approver

	Rand   io.Reader
	Logger log.Logger
}

// Dispatcher validates commands and runs them against the one signing
// session it owns. It is safe for concurrent use; commands are processed
// one at a time.
type Dispatcher struct {
	mu sync.Mutex

	app      AppInfo
	provider keys.Provider
	approver signer.Approver
	session  *signer.Session
	account  *signer.Account
	log      log.Logger
}

// New returns a dispatcher with an idle session and no account loaded.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New("module", "apdu")
	}
	app := cfg.App
	if app.Name == "" {
		app = DefaultAppInfo
	}
	return &Dispatcher{
		app:      app,
		provider: cfg.Provider,
		approver: cfg.Approver,
		session: signer.NewSession(signer.Config{
			ConsensusBranchID: cfg.ConsensusBranchID,
			Approver:          cfg.Approver,
			Rand:              cfg.Rand,
			Logger:            cfg.Logger,
		}),
		log: logger,
	}
}

// Exchange runs one raw command APDU and returns the response APDU.
func (d *Dispatcher) Exchange(raw []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, sw := d.dispatch(raw)
	return Response{Data: data, Status: sw}.Bytes()
}

// Close ends the session and zeroizes the loaded account.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardown()
}

func (d *Dispatcher) teardown() {
	d.session.End()
	if d.account != nil {
		d.account.Close()
		d.account = nil
	}
}

func (d *Dispatcher) dispatch(raw []byte) ([]byte, StatusWord) {
	cmd, err := ParseCommand(raw)
	if err != nil {
		d.log.Debug("Malformed APDU", "len", len(raw), "err", err)
		return nil, SWWrongDataLength
	}
	if cmd.Class != Class {
		d.log.Debug("Unsupported class", "cla", fmt.Sprintf("%#02x", cmd.Class))
		return nil, SWClaNotSupported
	}
	r, ok := routes[cmd.Ins]
	if !ok {
		d.log.Debug("Unsupported instruction", "ins", cmd.Ins)
		return nil, SWInsNotSupported
	}
	if sw := r.validate(cmd); sw != SWOK {
		d.log.Debug("APDU rejected", "ins", cmd.Ins, "p1", cmd.P1, "p2", cmd.P2, "lc", len(cmd.Data), "sw", sw)
		return nil, sw
	}

	d.log.Trace("APDU received", "ins", cmd.Ins, "p1", cmd.P1, "lc", len(cmd.Data))
	out, err := r.handle(d, cmd)
	if err != nil {
		sw := d.status(err)
		d.log.Debug("Command failed", "ins", cmd.Ins, "sw", sw, "err", err)
		return nil, sw
	}
	d.log.Trace("APDU completed", "ins", cmd.Ins, "len", len(out))
	return out, SWOK
}

// errInvalidData marks payloads a handler decoded itself and rejected.
var errInvalidData = errors.New("apdu: invalid data")

// status maps a handler error to its status word. Integrity failures and
// errors nobody expects tear the session and the account down.
func (d *Dispatcher) status(err error) StatusWord {
	var (
		seqErr   *signer.SequenceError
		valErr   *signer.ValidationError
		parseErr *tx.ParseError
		sigErr   *signer.SignatureError
	)
	switch {
	case errors.As(err, &seqErr):
		return SWBadState
	case errors.As(err, &valErr), errors.As(err, &parseErr), errors.Is(err, errInvalidData):
		return SWInvalidData
	case errors.Is(err, signer.ErrRejected):
		return SWDenied
	case errors.Is(err, signer.ErrNoAccount):
		return SWKeyUnavailable
	case errors.As(err, &sigErr):
		return SWSignatureFailure
	}
	d.log.Warn("Session destroyed", "err", err)
	d.teardown()
	return SWIntegrityFailure
}

func (d *Dispatcher) requireAccount() (*signer.Account, error) {
	if d.account == nil {
		return nil, signer.ErrNoAccount
	}
	return d.account, nil
}

// displayPrefix is the transparent address prefix shown on confirmation.
var displayPrefix = crypto.MainnetP2PKHPrefix
