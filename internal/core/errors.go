package core

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat indicates the input stream is not a parseable xlsx
// workbook (unreadable container or missing header row).
var ErrInvalidFormat = errors.New("invalid spreadsheet format")

// ErrEmptySheet indicates the workbook parsed but contains no header row.
// It wraps ErrInvalidFormat so callers can treat both as a format failure.
var ErrEmptySheet = fmt.Errorf("%w: sheet has no header row", ErrInvalidFormat)

// ColumnNotFoundError indicates the requested key column is absent from the
// dataset's header. It is raised before any partitioning work begins.
type ColumnNotFoundError struct {
	Column string
	Header []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %q (available: %v)", e.Column, e.Header)
}

// SerializationError indicates one group's rows could not be rendered to
// the output format. The whole run aborts; no partial archive is returned.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize group %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
