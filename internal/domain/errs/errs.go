package errs

import (
	"errors"
	"fmt"
)

// Kind buckets an error for the adapter edge (HTTP status mapping) and for
// callers that branch on failure class rather than message.
type Kind int

const (
	KindValidation Kind = iota + 1 // caller-correctable input problem
	KindPermission                 // actor not allowed to do this
	KindConflict                   // state forbids the operation right now
	KindImmutable                  // attempted mutation of an append-only record
	KindIntegrity                  // invariant violated; whole operation rolled back
)

type Error struct {
	Kind Kind
	Code string // optional machine code, e.g. a risk rule code
	Msg  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Msg
	}
	return e.Msg
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Immutable(format string, args ...any) *Error {
	return &Error{Kind: KindImmutable, Msg: fmt.Sprintf(format, args...)}
}

func Integrity(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Msg: fmt.Sprintf(format, args...)}
}

// WithCode attaches a machine-readable code and returns the same error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
