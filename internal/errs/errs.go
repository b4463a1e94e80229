// Package errs defines the error kinds shared by the scoring core and its
// adapters, plus op-tagged wrapping helpers.
//
// Callers classify failures with errors.Is against the Err* kinds:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
package errs

import (
	"errors"
	"strings"
)

// Error kinds.
var (
	// ErrFormat marks malformed time text. Recovered locally by asking for re-entry.
	ErrFormat = errors.New("format error")
	// ErrValidation marks a wrong attempt count, an illegal state transition or a
	// missing reference. The operation is aborted with no writes.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing round, event or competitor.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a persistence failure.
	ErrStorage = errors.New("storage error")
)

// Error carries the failing operation, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Err != nil && e.Kind != nil:
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// New returns an error of the given kind with a message.
func New(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}

// WrapKind tags err with op and kind. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op, keeping whatever kind it already carries.
// A nil err yields nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// KindOf reports which of the package kinds err carries, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrFormat, ErrValidation, ErrNotFound, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
