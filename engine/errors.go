package engine

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies engine errors so callers can branch on the failure class
// instead of matching message strings.
type Kind string

const (
	// KindNotFound means a referenced transaction, witness slot or vault is absent.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidState means the operation is not valid for the current status.
	KindInvalidState Kind = "INVALID_STATE"
	// KindInternal means a collaborator failed unexpectedly.
	KindInternal Kind = "INTERNAL"
	// KindNetworkFailure means a settlement network call failed or timed out.
	KindNetworkFailure Kind = "NETWORK_FAILURE"
)

// ErrAlreadyKnown is returned by a SettlementClient when the network reports
// the submitted transaction hash as already known. Submission treats it as a
// successful no-op.
var ErrAlreadyKnown = stderrors.New("transaction hash already known")

// Error is the engine's typed error.
type Error struct {
	Kind   Kind
	Title  string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Title)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Title, e.Detail)
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(title, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Title: title, Detail: fmt.Sprintf(format, args...)}
}

// InvalidStatef builds a KindInvalidState error.
func InvalidStatef(title, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Title: title, Detail: fmt.Sprintf(format, args...)}
}

// Internalf builds a KindInternal error.
func Internalf(title, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Title: title, Detail: fmt.Sprintf(format, args...)}
}

// NetworkFailuref builds a KindNetworkFailure error.
func NetworkFailuref(title, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNetworkFailure, Title: title, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or KindInternal when err carries
// none. A nil err has no kind and returns the empty string.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a KindNotFound engine error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidState reports whether err is a KindInvalidState engine error.
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
