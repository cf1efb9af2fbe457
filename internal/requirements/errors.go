package requirements

import "errors"

var (
	// ErrNotFound is returned when no requirement has the given id
	ErrNotFound = errors.New("requirement not found")

	// ErrNoHeaders is returned when a sheet has no non-empty row in its
	// header search window
	ErrNoHeaders = errors.New("no headers detected; the first non-empty row must contain column names")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownSheet is returned when selecting a sheet that is not in the workbook
	ErrUnknownSheet = errors.New("unknown sheet")
)
