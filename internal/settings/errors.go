package settings

import "errors"

var (
	// ErrUnknownProcess is returned for process ids outside the known set
	ErrUnknownProcess = errors.New("unknown process")

	// ErrEmptyBinding is returned when a binding has no provider
	ErrEmptyBinding = errors.New("binding requires a provider")
)
