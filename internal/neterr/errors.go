package neterr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure delivered through a task completion.
// Kind implements error so callers can match with errors.Is:
//
//	if errors.Is(err, neterr.KindValidation) { ... }
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindSerialization
	KindValidation
	KindContentType
	KindDecode
	KindFilesystem
	KindCancellation
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSerialization:
		return "serialization"
	case KindValidation:
		return "validation"
	case KindContentType:
		return "content-type"
	case KindDecode:
		return "decode"
	case KindFilesystem:
		return "filesystem"
	case KindCancellation:
		return "cancellation"
	default:
		return "unknown"
	}
}

// Error makes a Kind usable as an errors.Is target
func (k Kind) Error() string {
	return k.String() + " error"
}

// Error is the single error type surfaced by the session, serializer
// and reachability packages.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Message != "" {
		sb.WriteString(e.Message)
	} else {
		sb.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// Wrap creates an error of the given kind around an underlying error
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// WithStatus returns a copy of e carrying the HTTP status code
func (e *Error) WithStatus(code int) *Error {
	c := *e
	c.StatusCode = code
	return &c
}

// WithUnderlying attaches underlying to err. If err is an *Error without
// an underlying cause, a copy is returned with Err set; otherwise err is
// wrapped so both remain reachable through errors.Is/As.
func WithUnderlying(err, underlying error) error {
	if err == nil {
		return underlying
	}
	if underlying == nil {
		return err
	}
	var e *Error
	if errors.As(err, &e) && e.Err == nil {
		c := *e
		c.Err = underlying
		return &c
	}
	return fmt.Errorf("%w: %w", err, underlying)
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HasKind reports whether err or any error it wraps has the given kind
func HasKind(err error, kind Kind) bool {
	return errors.Is(err, kind)
}

// StatusCode returns the HTTP status code recorded on err, or 0
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// Transport classifies a failure from the network layer. Context
// cancellation becomes a cancellation error; everything else, including
// deadlines, is a transport error.
func Transport(op string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return Canceled(op, err)
	}
	return Wrap(KindTransport, op, "request failed", err)
}

// Canceled creates a cancellation error
func Canceled(op string, err error) *Error {
	return Wrap(KindCancellation, op, "task cancelled", err)
}

// IsCancellation reports whether err is a cancellation error
func IsCancellation(err error) bool {
	return errors.Is(err, KindCancellation)
}
