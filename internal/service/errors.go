package service

import "errors"

var (
	// ErrSourceNotFound means no live source exists with the given key.
	ErrSourceNotFound = errors.New("live source not found")

	// ErrSourceExists means a live source with the given key already exists.
	ErrSourceExists = errors.New("live source already exists")
)
