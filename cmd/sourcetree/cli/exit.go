// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output.
//
// "sourcetree find" returns ExitError{Code: 1} when nothing matched.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface on
// returned errors to distinguish "handled non-zero exit" from
// "unexpected error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Silent reports that the command already wrote its output, so main
// prints no error line.
func (e *ExitError) Silent() bool { return true }

// UsageError reports a bad invocation: unknown command or flag, or
// wrong arguments. It exits with status 2.
type UsageError struct {
	Err error
}

// Usage creates a UsageError with a formatted message.
func Usage(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode returns 2, the conventional status for bad invocations.
func (e *UsageError) ExitCode() int { return 2 }
