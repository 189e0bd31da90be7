package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a ledger record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrorKind classifies a pipeline failure. It implements error so callers can
// match a kind directly with errors.Is(err, models.KindInsufficientMaterial).
type ErrorKind string

// Pipeline error kinds
const (
	KindInvalidInput         ErrorKind = "InvalidInput"
	KindInvalidRequestKind   ErrorKind = "InvalidRequestKind"
	KindSourceFetchFailed    ErrorKind = "SourceFetchFailed"
	KindExtractionFailed     ErrorKind = "ExtractionFailed"
	KindStoreFailed          ErrorKind = "StoreFailed"
	KindLedgerFailed         ErrorKind = "LedgerFailed"
	KindIDCollision          ErrorKind = "IdCollision"
	KindInsufficientMaterial ErrorKind = "InsufficientMaterial"
	KindMaterialFetchFailed  ErrorKind = "MaterialFetchFailed"
	KindCompositionFailed    ErrorKind = "CompositionFailed"
	KindPublishFailed        ErrorKind = "PublishFailed"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// IsClientError reports whether the kind is caused by the request rather than
// by a collaborator.
func (k ErrorKind) IsClientError() bool {
	switch k {
	case KindInvalidInput, KindInvalidRequestKind, KindInsufficientMaterial:
		return true
	default:
		return false
	}
}

// PipelineError is returned by the controllers and the dispatcher.
type PipelineError struct {
	Kind    ErrorKind
	Op      string // step that failed, e.g. "fetch_background"
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " [" + e.Op + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches an ErrorKind target against the error's kind.
func (e *PipelineError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// NewPipelineError creates a new pipeline error
func NewPipelineError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// InvalidInputf builds an InvalidInput error with a formatted message.
func InvalidInputf(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: KindInvalidInput, Op: "validate", Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first PipelineError in err's chain, or the
// empty kind when err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}
