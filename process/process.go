// Package process provides interfaces and types for reading a foreign process's memory
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessGone is returned when the target process exited while it was being read.
	ErrProcessGone = errors.New("process gone")

	// ErrModuleNotFound is returned when no loaded module matches the requested name.
	ErrModuleNotFound = errors.New("module not found")

	// ErrProcessNotFound is returned when no running process matches the requested name.
	ErrProcessNotFound = errors.New("process not found")

	ErrInvalidPointer = errors.New("invalid pointer read")
)

// IsFatal reports whether err means the attach is over, as opposed to a single read
// that happened to land on unmapped memory.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProcessGone) || errors.Is(err, ErrProcessNotOpen)
}
