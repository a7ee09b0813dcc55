package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can decide whether to retry, fix
// their input, or treat the outcome as expected.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection covers network, auth and remote-unavailable failures.
	// Always retryable by the caller with backoff.
	KindConnection
	// KindValidation is malformed input, detected before any network call.
	KindValidation
	// KindAlreadyExists is the expected outcome of a repeated Create.
	KindAlreadyExists
	// KindNotFound is the expected outcome of Drop/BuildIndex on an absent collection.
	KindNotFound
	// KindRemoteRejected means the engine understood the request and refused it.
	KindRemoteRejected
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindValidation:
		return "validation"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindRemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

var (
	// Kind sentinels, matched by errors.Is against any *Error of that kind
	ErrConnection         = errors.New("connection error")
	ErrValidation         = errors.New("validation error")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRemoteRejected     = errors.New("rejected by remote engine")

	// Validation errors
	ErrInvalidName      = errors.New("invalid collection name")
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrInvalidSchema    = errors.New("invalid collection schema")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEmptyBatch       = errors.New("empty batch")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrDuplicateKey     = errors.New("duplicate primary key in batch")
	ErrInvalidVector    = errors.New("vector contains NaN or Inf")
	ErrInvalidTopK      = errors.New("invalid topK")

	// Connection errors
	ErrHandleClosed   = errors.New("connection handle is closed")
	ErrOutcomeUnknown = errors.New("operation outcome unknown")

	// Index errors
	ErrFieldNotFound = errors.New("field not found")
	ErrNotIndexed    = errors.New("collection has no index")
	ErrNotTrained    = errors.New("index is not trained")

	// Document errors
	ErrDocumentNotFound      = errors.New("document not found")
	ErrMisMatchKeysAndValues = errors.New("keys and values length mismatch")
)

// Error is the typed failure returned by every vector operation.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Collection != "" {
		fmt.Fprintf(&b, " [collection=%s]", e.Collection)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindValidation:
		return ErrValidation
	case KindAlreadyExists:
		return ErrCollectionExists
	case KindNotFound:
		return ErrCollectionNotFound
	case KindRemoteRejected:
		return ErrRemoteRejected
	}
	return nil
}

// New builds an *Error of the given kind.
func New(kind Kind, op, collection string, err error, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Op:         op,
		Collection: collection,
		Detail:     fmt.Sprintf(format, args...),
		Err:        err,
	}
}

func Validation(op, collection string, err error, format string, args ...any) *Error {
	return New(KindValidation, op, collection, err, format, args...)
}

func Connection(op, collection string, err error, format string, args ...any) *Error {
	return New(KindConnection, op, collection, err, format, args...)
}

func NotFound(op, collection string, err error, format string, args ...any) *Error {
	return New(KindNotFound, op, collection, err, format, args...)
}

func AlreadyExists(op, collection string) *Error {
	return &Error{Kind: KindAlreadyExists, Op: op, Collection: collection}
}

func Rejected(op, collection string, err error, format string, args ...any) *Error {
	return New(KindRemoteRejected, op, collection, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may retry err unchanged. A write whose
// outcome is unknown may already be applied, so it is not retryable.
func Retryable(err error) bool {
	return KindOf(err) == KindConnection &&
		!errors.Is(err, ErrHandleClosed) &&
		!errors.Is(err, ErrOutcomeUnknown)
}

// Expected reports outcomes of idempotent lifecycle calls that are not failures.
func Expected(err error) bool {
	k := KindOf(err)
	return k == KindAlreadyExists || k == KindNotFound
}
