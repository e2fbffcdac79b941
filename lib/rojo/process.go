// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rojo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultTool is the executable name used when none is configured.
const DefaultTool = "rojo"

// WatchArguments returns the arguments that make the tool print a new
// snapshot of projectFile every time the workspace changes.
func WatchArguments(projectFile string, includeNonScripts bool) []string {
	arguments := []string{"sourcemap", "--watch", projectFile}
	if includeNonScripts {
		arguments = append(arguments, "--include-non-scripts")
	}
	return arguments
}

// ExitError reports that the tool exited with a non-zero status
// without being killed.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, stderr)
}

// Callbacks receive the events of one spawned process. Any field may
// be nil. Callbacks run on the process's reader goroutine and none of
// them fire once the process has been killed.
type Callbacks struct {
	// Loading fires when output for a new snapshot starts arriving.
	Loading func()

	// Snapshot fires for every complete document.
	Snapshot func(Document)

	// Exited fires once when the process ends on its own, with its
	// exit code and everything it wrote to stderr.
	Exited func(code int, stderr string)

	// Errored fires before Exited when the process ended abnormally:
	// a non-zero exit (*ExitError) or a failure to collect its status.
	Errored func(error)
}

// Supervisor spawns tool processes.
type Supervisor struct {
	tool   string
	logger *slog.Logger
}

// NewSupervisor returns a Supervisor running tool, which is resolved
// through PATH when not absolute.
func NewSupervisor(tool string, logger *slog.Logger) *Supervisor {
	if tool == "" {
		tool = DefaultTool
	}
	return &Supervisor{tool: tool, logger: logger}
}

// Tool returns the executable the supervisor runs.
func (supervisor *Supervisor) Tool() string {
	return supervisor.tool
}

// Spawn starts the tool with arguments in workingDirectory and streams
// its stdout through a Framer into callbacks. The process runs until
// it exits, Kill is called, or ctx is cancelled; cancellation is
// treated like Kill. There is no automatic restart.
func (supervisor *Supervisor) Spawn(ctx context.Context, workingDirectory string, arguments []string, callbacks Callbacks) (*Process, error) {
	command := exec.CommandContext(ctx, supervisor.tool, arguments...)
	command.Dir = workingDirectory

	process := &Process{
		command: command,
		tool:    supervisor.tool,
		done:    make(chan struct{}),
	}
	command.Stderr = &process.stderr

	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe for %s: %w", supervisor.tool, err)
	}
	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", supervisor.tool, err)
	}

	logger := supervisor.logger.With(
		"tool", supervisor.tool,
		"pid", command.Process.Pid,
		"directory", workingDirectory,
	)
	logger.Debug("tool process started", "arguments", arguments)

	framer := NewFramer(
		process.guard(callbacks.Loading),
		func(document Document) {
			if process.killed.Load() || callbacks.Snapshot == nil {
				return
			}
			callbacks.Snapshot(document)
		},
	)
	framer.SetLogger(logger)

	go process.run(ctx, stdout, framer, callbacks, logger)
	return process, nil
}

// Process is one running tool process.
type Process struct {
	command *exec.Cmd
	tool    string
	killed  atomic.Bool
	stderr  lockedBuffer
	done    chan struct{}
}

// Kill terminates the process. Output and exit status produced after
// Kill are discarded. Safe to call more than once and after the
// process has exited.
func (process *Process) Kill() {
	if process.killed.Swap(true) {
		return
	}
	// The process may already have exited; nothing to report then.
	_ = process.command.Process.Kill()
}

// Killed reports whether Kill has been called.
func (process *Process) Killed() bool {
	return process.killed.Load()
}

// Done is closed once the process has exited and its output has been
// fully consumed.
func (process *Process) Done() <-chan struct{} {
	return process.done
}

// Stderr returns everything the process has written to stderr so far.
func (process *Process) Stderr() string {
	return process.stderr.String()
}

// guard wraps a callback so it is skipped once the process is killed.
func (process *Process) guard(callback func()) func() {
	if callback == nil {
		return nil
	}
	return func() {
		if !process.killed.Load() {
			callback()
		}
	}
}

func (process *Process) run(ctx context.Context, stdout io.Reader, framer *Framer, callbacks Callbacks, logger *slog.Logger) {
	defer close(process.done)

	// The framer never fails, so copying only stops at EOF or a read
	// error on a pipe closed by Wait's cleanup of a killed process.
	if _, err := io.Copy(killGuardWriter{process: process, target: framer}, stdout); err != nil && !process.killed.Load() {
		logger.Warn("reading tool output failed", "error", err)
	}

	waitErr := process.command.Wait()
	if process.killed.Load() || ctx.Err() != nil {
		logger.Debug("tool process stopped")
		return
	}

	stderr := process.stderr.String()
	code := process.command.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	switch {
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		logger.Warn("collecting tool exit status failed", "error", waitErr)
		process.report(callbacks, fmt.Errorf("waiting for %s: %w", process.tool, waitErr))
	case code != 0:
		logger.Warn("tool process exited abnormally", "code", code, "stderr", strings.TrimSpace(stderr))
		process.report(callbacks, &ExitError{Tool: process.tool, Code: code, Stderr: stderr})
	default:
		logger.Info("tool process exited")
	}
	if callbacks.Exited != nil {
		callbacks.Exited(code, stderr)
	}
}

func (process *Process) report(callbacks Callbacks, err error) {
	if callbacks.Errored != nil {
		callbacks.Errored(err)
	}
}

// killGuardWriter drops writes once its process has been killed.
type killGuardWriter struct {
	process *Process
	target  io.Writer
}

func (writer killGuardWriter) Write(data []byte) (int, error) {
	if writer.process.killed.Load() {
		return len(data), nil
	}
	return writer.target.Write(data)
}

// lockedBuffer is a bytes.Buffer safe for the concurrent writes of
// exec's stderr copier and reads from callbacks.
type lockedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (buffer *lockedBuffer) Write(data []byte) (int, error) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.Write(data)
}

func (buffer *lockedBuffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.String()
}
