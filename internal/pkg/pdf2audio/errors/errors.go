// Package errors classifies failures of a conversion run so the CLI can tell
// user mistakes apart from extraction, model and internal assembly defects.
package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindConfig covers invalid arguments, missing inputs and unusable style
	// files. Reported before any inference starts.
	KindConfig Kind = "config"
	// KindExtraction covers failures of the external text extraction tool.
	KindExtraction Kind = "extraction"
	// KindInference covers model runtime failures and cross-unit consistency
	// violations such as mismatched sample rates.
	KindInference Kind = "inference"
	// KindAssembly marks a broken trimming invariant. It is an internal
	// defect, never a user error.
	KindAssembly Kind = "assembly"
	KindUnknown  Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a kind to err. An error that is already classified keeps its
// original kind so the first classification wins.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first classified error in the chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}
