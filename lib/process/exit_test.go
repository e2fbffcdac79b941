// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct {
	code   int
	silent bool
}

func (e *codedError) Error() string { return fmt.Sprintf("code %d", e.code) }
func (e *codedError) ExitCode() int { return e.code }
func (e *codedError) Silent() bool { return e.silent }

func TestReport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput string
	}{
		{"nil", nil, 0, ""},
		{"plain", errors.New("boom"), 1, "error: boom\n"},
		{"coded", &codedError{code: 2}, 2, "error: code 2\n"},
		{"wrapped coded", fmt.Errorf("running: %w", &codedError{code: 3}), 3, "error: running: code 3\n"},
		{"silent", &codedError{code: 1, silent: true}, 1, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			if code := report(&output, test.err); code != test.wantCode {
				t.Errorf("report() = %d, want %d", code, test.wantCode)
			}
			if output.String() != test.wantOutput {
				t.Errorf("output = %q, want %q", output.String(), test.wantOutput)
			}
		})
	}
}
