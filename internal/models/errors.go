package models

import "errors"

// Validation errors shared by persisted entities.
var (
	// ErrKeyRequired is returned when an entity is missing its unique key.
	ErrKeyRequired = errors.New("key is required")

	// ErrNameRequired is returned when an entity is missing its display name.
	ErrNameRequired = errors.New("name is required")

	// ErrURLRequired is returned when a source is missing its URL.
	ErrURLRequired = errors.New("url is required")

	// ErrInvalidURL is returned when a source URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid url")
)
