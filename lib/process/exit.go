// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Exit terminates the process for the error returned from run(). A nil
// error exits 0. Errors implementing ExitCode() pick the status; the
// message is still printed unless the error is a bare exit status
// whose command already wrote its own output.
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes the error line for err to w and returns the exit
// status to use.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	code := 1
	var coder exitCoder
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	if silent, ok := err.(interface{ Silent() bool }); ok && silent.Silent() {
		return code
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
