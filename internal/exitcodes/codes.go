package exitcodes

import (
	"errors"
	"fmt"
	"os"
)

// Standard exit codes for mcpax
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., instance not initialized, missing config)
	PreconditionFailed = 3

	// NetworkError indicates catalog/connectivity failure
	// (e.g., API unreachable, timeout, rate limit exhausted)
	NetworkError = 4

	// ValidationError indicates validation failure
	// (e.g., invalid config, corrupted state, hash mismatch)
	ValidationError = 6

	// PartialFailure indicates a sync run where some items failed while
	// others completed
	PartialFailure = 7
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// ExitWithErrorf prints formatted error message to stderr and exits
func ExitWithErrorf(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// Unwraps ErrorWithCode for explicit codes, otherwise returns GeneralError.
// Use explicit error constructors (NetworkErr, ValidationErr, etc.) for specific codes.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	return GeneralError
}
