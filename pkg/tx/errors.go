package tx

import "fmt"

// ParseError is returned when a record or transaction document cannot be
// decoded.
type ParseError struct {
	Code    string // Error code (e.g., ErrShortRecord)
	Record  string // Which record or field was being parsed
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error [%s] %s: %s: %v", e.Code, e.Record, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error [%s] %s: %s", e.Code, e.Record, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Error codes for ParseError.
const (
	ErrRecordLength    = "RECORD_LENGTH"    // Wire record has the wrong size
	ErrInvalidField    = "INVALID_FIELD"    // A field holds a value outside its domain
	ErrUnsupported     = "UNSUPPORTED"      // Well formed but not supported (e.g. script type)
	ErrInvalidDocument = "INVALID_DOCUMENT" // YAML transaction document is malformed
	ErrMalformedTx     = "MALFORMED_TX"     // Raw v5 transaction bytes cannot be decoded
)
