package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind classifies exchange failures for the retry layer. Heterogeneous
// transport and API error shapes are normalized into this single tagged
// variant at the boundary, before they reach orchestration code.
type ErrorKind int

const (
	// ErrorKindUnknown covers failures that could not be classified,
	// such as response parsing problems. Not retried.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindRetryable covers transient failures: disconnects, rate
	// limits, exchange-side 5xx responses.
	ErrorKindRetryable
	// ErrorKindNonRetryable covers deterministic rejections: bad
	// credentials, insufficient balance, invalid symbol or quantity.
	ErrorKindNonRetryable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindRetryable:
		return "retryable"
	case ErrorKindNonRetryable:
		return "non-retryable"
	default:
		return "unknown"
	}
}

// Error is a normalized exchange error carrying the upstream code and
// message together with its retry classification.
type Error struct {
	Kind    ErrorKind
	Code    int
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange %s: %s (code %d, %s)", e.Op, e.Message, e.Code, e.Kind)
	}
	return fmt.Sprintf("exchange %s: %s (%s)", e.Op, e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a normalized exchange error
func NewError(kind ErrorKind, op string, code int, message string) *Error {
	return &Error{Kind: kind, Op: op, Code: code, Message: message}
}

// WrapTransport normalizes a transport-level failure (network error, timeout)
// as retryable.
func WrapTransport(op string, err error) *Error {
	return &Error{Kind: ErrorKindRetryable, Op: op, Message: err.Error(), Err: err}
}

// WrapUnknown normalizes an unclassifiable failure
func WrapUnknown(op string, err error) *Error {
	return &Error{Kind: ErrorKindUnknown, Op: op, Message: err.Error(), Err: err}
}

// IsRetryable reports whether an error is classified as transient. Anything
// that is not an *Error, or is tagged Unknown or NonRetryable, is not
// retried.
func IsRetryable(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind == ErrorKindRetryable
	}
	return false
}
