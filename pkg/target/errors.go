package target

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Cause classifies why creating or attaching to a process failed.
type Cause int

const (
	CauseOther Cause = iota
	CausePermission
	CauseIO
	CauseNotFound
	CauseMalformed
	CauseNotANumber
)

func (c Cause) String() string {
	switch c {
	case CausePermission:
		return "permission denied"
	case CauseIO:
		return "i/o error"
	case CauseNotFound:
		return "not found"
	case CauseMalformed:
		return "malformed binary"
	case CauseNotANumber:
		return "not a number"
	default:
		return "other"
	}
}

// causeOf maps an OS error onto a Cause.
func causeOf(err error) Cause {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return CauseOther
	}
	switch errno {
	case unix.EPERM, unix.EACCES:
		return CausePermission
	case unix.EIO:
		return CauseIO
	case unix.ENOENT, unix.ESRCH:
		return CauseNotFound
	case unix.ENOEXEC:
		return CauseMalformed
	default:
		return CauseOther
	}
}

// PathResolutionError is returned when a binary path can't be made absolute.
type PathResolutionError struct {
	Path string
	Err  error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("failed to obtain absolute file path of %q: %v", e.Path, e.Err)
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

// ProcessCreationError is returned when the tracee can't be started.
type ProcessCreationError struct {
	Path  string
	Cause Cause
	Err   error
}

func (e *ProcessCreationError) Error() string {
	switch e.Cause {
	case CausePermission:
		return fmt.Sprintf("no permission to execute %s", e.Path)
	case CauseIO:
		return fmt.Sprintf("i/o error while executing %s", e.Path)
	case CauseNotFound:
		return fmt.Sprintf("binary %s not found", e.Path)
	case CauseMalformed:
		return fmt.Sprintf("binary %s is malformed", e.Path)
	default:
		return fmt.Sprintf("failed to execute %s: %v", e.Path, e.Err)
	}
}

func (e *ProcessCreationError) Unwrap() error { return e.Err }

// AttachError is returned when attaching to a running process fails.
type AttachError struct {
	Pid   string
	Cause Cause
	Err   error
}

func (e *AttachError) Error() string {
	switch e.Cause {
	case CauseNotANumber:
		return fmt.Sprintf("pid must be a number: %q", e.Pid)
	case CausePermission:
		return fmt.Sprintf("no permission to attach to process %s", e.Pid)
	case CauseIO:
		return fmt.Sprintf("i/o error while attaching to process %s", e.Pid)
	case CauseNotFound:
		return fmt.Sprintf("process %s not found", e.Pid)
	default:
		return fmt.Sprintf("failed to attach to process %s: %v", e.Pid, e.Err)
	}
}

func (e *AttachError) Unwrap() error { return e.Err }

// RegisterAccessError wraps a failed register read or write.
type RegisterAccessError struct {
	Op  string
	Err error
}

func (e *RegisterAccessError) Error() string {
	return fmt.Sprintf("%s registers error: %v", e.Op, e.Err)
}

func (e *RegisterAccessError) Unwrap() error { return e.Err }

// MemoryAccessError wraps a failed word peek or poke.
type MemoryAccessError struct {
	Op   string
	Addr uintptr
	Err  error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("%s word at %#x error: %v", e.Op, e.Addr, e.Err)
}

func (e *MemoryAccessError) Unwrap() error { return e.Err }
