package residency

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a probe failure.
type Kind int

const (
	// IOUnavailable means the descriptor's metadata could not be
	// queried, or it does not refer to a regular file.
	IOUnavailable Kind = iota + 1
	// EmptyFile means the file has zero length and cannot be mapped.
	EmptyFile
	// MappingFailed means the OS refused to map the file.
	MappingFailed
	// OutOfMemory means the residency vector could not be allocated.
	OutOfMemory
	// ResidencyQueryFailed means mincore(2) failed on an established
	// mapping.
	ResidencyQueryFailed
)

func (k Kind) String() string {
	switch k {
	case IOUnavailable:
		return "io unavailable"
	case EmptyFile:
		return "empty file"
	case MappingFailed:
		return "mapping failed"
	case OutOfMemory:
		return "out of memory"
	case ResidencyQueryFailed:
		return "residency query failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every probe operation that fails. Op names the
// failing system call and Err carries the underlying OS error, if any.
type Error struct {
	Kind Kind
	Op   string
	FD   int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("residency: %s: fd %d: %s", e.Op, e.FD, e.Kind)
	}
	return fmt.Sprintf("residency: %s: fd %d: %s: %v", e.Op, e.FD, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. This lets
// callers match against the Err* sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errno returns the OS error code behind the failure, or 0 when the
// failure did not originate from a system call.
func (e *Error) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// Sentinels for use with errors.Is.
var (
	ErrIOUnavailable        = &Error{Kind: IOUnavailable}
	ErrEmptyFile            = &Error{Kind: EmptyFile}
	ErrMappingFailed        = &Error{Kind: MappingFailed}
	ErrOutOfMemory          = &Error{Kind: OutOfMemory}
	ErrResidencyQueryFailed = &Error{Kind: ResidencyQueryFailed}
)

// KindOf returns the Kind of err, or 0 if err is not a probe error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
