package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure so callers can branch on the
// category instead of parsing message strings.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means the input had a bad shape or range.
	KindValidation
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindUnavailable means the product exists but is inactive.
	KindUnavailable
	// KindForbidden means the actor lacks permission.
	KindForbidden
	// KindSelfProtection means an admin targeted their own account.
	KindSelfProtection
	// KindLimitReached means nothing more could be added within stock limits.
	KindLimitReached
	// KindStockAdjusted means a requested quantity was clamped to stock.
	KindStockAdjusted
	// KindPartialFulfillment means only part of a request was applied.
	KindPartialFulfillment
	// KindConflict means a state conflict (duplicate identity, CSRF mismatch).
	KindConflict
	// KindStorage means the underlying data access failed.
	KindStorage
)

// String returns a stable machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindForbidden:
		return "forbidden"
	case KindSelfProtection:
		return "self_protection"
	case KindLimitReached:
		return "limit_reached"
	case KindStockAdjusted:
		return "stock_adjusted"
	case KindPartialFulfillment:
		return "partial_fulfillment"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a tagged error carrying a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindUnknown if err is not tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
