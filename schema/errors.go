package schema

import "errors"

var (
	// ErrUnknownEntity is returned when an entity name has no registered descriptor.
	ErrUnknownEntity = errors.New("syllabus: unknown entity")

	// ErrDuplicateEntity is returned when an entity name is registered twice.
	ErrDuplicateEntity = errors.New("syllabus: entity already registered")

	// ErrRegistrySealed is returned when registering after the registry was first read.
	ErrRegistrySealed = errors.New("syllabus: schema registry is sealed")

	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("syllabus: invalid entity descriptor")

	// ErrMissingKey is returned when an item or key lacks a primary key attribute.
	ErrMissingKey = errors.New("syllabus: missing key attribute")

	// ErrInvalidKeyType is returned when a key attribute is not a string, number or binary.
	ErrInvalidKeyType = errors.New("syllabus: key attribute must be S, N or B")
)
