package vector

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the collection pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindSchemaAlreadyExists
	KindSchemaMissing
	KindValidation
	KindEmbedding
	KindModelUnavailable
	KindWrite
	KindIndex
	KindNotLoaded
	KindQuery
	KindEmbeddingDrift
)

var (
	ErrConnection          = errors.New("connection error")
	ErrSchemaAlreadyExists = errors.New("schema already exists")
	ErrSchemaMissing       = errors.New("schema missing")
	ErrValidation          = errors.New("validation error")
	ErrEmbedding           = errors.New("embedding failure")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrWrite               = errors.New("write failure")
	ErrIndex               = errors.New("index failure")
	ErrNotLoaded           = errors.New("collection not loaded")
	ErrQuery               = errors.New("query failure")
	ErrEmbeddingDrift      = errors.New("embedding model drift")
)

// ErrNoIndex is the cause of the KindIndex error returned when a collection
// is loaded before any index was built. Only a BuildIndex call clears it.
var ErrNoIndex = errors.New("no index built")

var sentinels = map[Kind]error{
	KindConnection:          ErrConnection,
	KindSchemaAlreadyExists: ErrSchemaAlreadyExists,
	KindSchemaMissing:       ErrSchemaMissing,
	KindValidation:          ErrValidation,
	KindEmbedding:           ErrEmbedding,
	KindModelUnavailable:    ErrModelUnavailable,
	KindWrite:               ErrWrite,
	KindIndex:               ErrIndex,
	KindNotLoaded:           ErrNotLoaded,
	KindQuery:               ErrQuery,
	KindEmbeddingDrift:      ErrEmbeddingDrift,
}

func (k Kind) String() string {
	if s, ok := sentinels[k]; ok {
		return s.Error()
	}
	return "unknown error"
}

// Error carries the kind of a failure together with the operation and the
// collection it happened on. The cause is available via errors.Unwrap.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	Err        error
}

// NewError wraps err with the given kind.
func NewError(kind Kind, op, collection string, err error) *Error {
	return &Error{Kind: kind, Op: op, Collection: collection, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Collection != "" {
		msg = fmt.Sprintf("%s (collection %s)", msg, e.Collection)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrNotLoaded)
// works for any *Error of kind KindNotLoaded.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether err is transient. Logical errors (schema,
// validation, not loaded, no index built) and writes are never retried;
// writes are not idempotent under generated keys.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNoIndex) {
		return false
	}
	switch KindOf(err) {
	case KindConnection, KindEmbedding, KindIndex, KindQuery:
		return true
	}
	return false
}
