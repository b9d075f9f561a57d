package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedArchive signals an archive whose tables do not have the expected shape.
	ErrMalformedArchive = errors.New("malformed archive")
	// ErrUnknownLayout signals an archive whose table set matches no known layout.
	ErrUnknownLayout = errors.New("unknown archive layout")
	// ErrInvalidID signals an identifier value that cannot be formatted.
	ErrInvalidID = errors.New("invalid identifier")
)

// Op names the loader stage an ArchiveError happened in.
type Op string

// Archive stages.
const (
	OpOpen    Op = "open"
	OpRead    Op = "read"
	OpDecode  Op = "decode"
	OpDetect  Op = "detect"
	OpExtract Op = "extract"
)

// ArchiveError wraps a failure with the archive location and the stage it happened in.
type ArchiveError struct {
	Location string
	Op       Op
	Err      error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %s: %v", e.Location, e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// MalformedError builds an error wrapping ErrMalformedArchive with details.
func MalformedError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedArchive, fmt.Sprintf(format, args...))
}
