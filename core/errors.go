package core

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a fatal load error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformedStructure covers unparseable token streams, a missing
	// trailer and an unresolvable /Root.
	KindMalformedStructure
	// KindEncryptedPDF is returned when encryption is present and the policy
	// rejects it, or when the supplied password does not validate.
	KindEncryptedPDF
	// KindUnsupportedFilter is returned for unknown filter names and invalid
	// filter parameters.
	KindUnsupportedFilter
	// KindCyclicReference is returned when an object or the page tree
	// refers back to itself while being resolved.
	KindCyclicReference
)

// String returns the taxonomy name of the kind
func (k Kind) String() string {
	switch k {
	case KindMalformedStructure:
		return "MALFORMED_STRUCTURE"
	case KindEncryptedPDF:
		return "ENCRYPTED_PDF"
	case KindUnsupportedFilter:
		return "UNSUPPORTED_FILTER"
	case KindCyclicReference:
		return "CYCLIC_REFERENCE"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed load error. Two errors match under errors.Is when their
// kinds are equal, so callers can test against the Err* sentinels.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrMalformedStructure = &Error{Kind: KindMalformedStructure}
	ErrEncryptedPDF       = &Error{Kind: KindEncryptedPDF}
	ErrUnsupportedFilter  = &Error{Kind: KindUnsupportedFilter}
	ErrCyclicReference    = &Error{Kind: KindCyclicReference}
)

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapKind attaches a kind to err. An err that already carries a kind is
// returned unchanged.
func WrapKind(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
