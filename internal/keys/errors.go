package keys

import "errors"

// Kind classifies failures of the key lifecycle and usage operations.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindExpired
	KindStore
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindExpired:
		return "expired"
	case KindStore:
		return "store"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Service and UsageAggregator.
// Message is safe to show to the caller; Err keeps the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrNameRequired   = &Error{Kind: KindValidation, Message: "Name required"}
	ErrTenantNotFound = &Error{Kind: KindNotFound, Message: "Tenant not found"}
	ErrInvalidKey     = &Error{Kind: KindUnauthorized, Message: "Invalid API key"}
	ErrKeyExpired     = &Error{Kind: KindExpired, Message: "API key expired"}
)

// storeError wraps a persistence failure, surfacing the store's own message.
func storeError(err error) *Error {
	return &Error{Kind: KindStore, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
