package store

import (
	"errors"
	"fmt"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
)

var (
	// ErrNotFound is returned when updating an item that does not exist.
	// Reads report a missing item as an empty result instead.
	ErrNotFound = errors.New("syllabus: entity not found")

	// ErrAlreadyExists is returned when creating an item whose key is taken.
	ErrAlreadyExists = errors.New("syllabus: entity already exists")

	// ErrConditionFailed is returned by adapters when a write condition fails.
	ErrConditionFailed = errors.New("syllabus: condition check failed")

	// ErrMissingCredentials is reported by a CredentialSource when no usable
	// credentials are available.
	ErrMissingCredentials = errors.New("syllabus: store credentials unavailable")

	// ErrInvalidPageToken is returned for page tokens the adapter did not issue.
	ErrInvalidPageToken = errors.New("syllabus: invalid page token")
)

// Re-exported so callers can match every error kind from one package.
var (
	ErrUnknownEntity     = schema.ErrUnknownEntity
	ErrKeyFieldImmutable = patch.ErrKeyFieldImmutable
	ErrEmptyPatch        = patch.ErrEmptyPatch
	ErrUnknownAttribute  = patch.ErrUnknownAttribute
	ErrUnroutableQuery   = route.ErrUnroutableQuery
)

// TransportError reports a failed adapter call (network, auth, throttling).
type TransportError struct {
	Op     string
	Entity string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("syllabus: %s %s: transport: %v", e.Op, e.Entity, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrorKind classifies errors returned by the store.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnknownEntity
	KindKeyFieldImmutable
	KindEmptyPatch
	KindUnroutableQuery
	KindTransport
	KindNotFound
	KindAlreadyExists
	KindValidation
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindUnknownEntity:
		return "UnknownEntity"
	case KindKeyFieldImmutable:
		return "KeyFieldImmutable"
	case KindEmptyPatch:
		return "EmptyPatch"
	case KindUnroutableQuery:
		return "UnroutableQuery"
	case KindTransport:
		return "Transport"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindValidation:
		return "Validation"
	default:
		return "Other"
	}
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownEntity):
		return KindUnknownEntity
	case errors.Is(err, ErrKeyFieldImmutable):
		return KindKeyFieldImmutable
	case errors.Is(err, ErrEmptyPatch):
		return KindEmptyPatch
	case errors.Is(err, ErrUnroutableQuery):
		return KindUnroutableQuery
	case IsTransport(err):
		return KindTransport
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrUnknownAttribute),
		errors.Is(err, patch.ErrNotSparseMap),
		errors.Is(err, patch.ErrInvalidPath),
		errors.Is(err, patch.ErrInvalidValue),
		errors.Is(err, route.ErrInvalidConstraint),
		errors.Is(err, schema.ErrMissingKey),
		errors.Is(err, schema.ErrInvalidKeyType),
		errors.Is(err, ErrInvalidPageToken):
		return KindValidation
	default:
		return KindOther
	}
}
