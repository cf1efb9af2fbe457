package storage

import "errors"

var (
	// ErrNotFound is returned when a key is not present in a store
	ErrNotFound = errors.New("key not found")

	// ErrStoreClosed is returned by operations on a closed store
	ErrStoreClosed = errors.New("store closed")

	// ErrUnknownDriver is returned when the configured backend is not supported
	ErrUnknownDriver = errors.New("unknown storage driver")
)
