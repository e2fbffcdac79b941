// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/sourcetree/lib/clock"
	"github.com/bureau-foundation/sourcetree/lib/config"
	"github.com/bureau-foundation/sourcetree/lib/fswatch"
	"github.com/bureau-foundation/sourcetree/lib/rojo"
	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
	"github.com/bureau-foundation/sourcetree/lib/testutil"
)

const waitTimeout = 10 * time.Second

// displayCall is one recorded call on fakeDisplay.
type displayCall struct {
	method    string
	workspace string
	argument  string
	snapshot  *sourcemap.Node
	force     bool
}

type fakeDisplay struct {
	mutex sync.Mutex
	calls []displayCall
	feed  chan displayCall
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{feed: make(chan displayCall, 256)}
}

func (display *fakeDisplay) record(call displayCall) {
	display.mutex.Lock()
	display.calls = append(display.calls, call)
	display.mutex.Unlock()
	display.feed <- call
}

func (display *fakeDisplay) SetLoading(workspace, path string) {
	display.record(displayCall{method: "SetLoading", workspace: workspace, argument: path})
}

func (display *fakeDisplay) SetError(workspace, message string) {
	display.record(displayCall{method: "SetError", workspace: workspace, argument: message})
}

func (display *fakeDisplay) ClearError(workspace string) {
	display.record(displayCall{method: "ClearError", workspace: workspace})
}

func (display *fakeDisplay) Update(_ context.Context, workspace string, snapshot *sourcemap.Node, forceRebuild bool) {
	display.record(displayCall{method: "Update", workspace: workspace, snapshot: snapshot, force: forceRebuild})
}

func (display *fakeDisplay) Delete(workspace string) {
	display.record(displayCall{method: "Delete", workspace: workspace})
}

// next waits for the next call to method, discarding others.
func (display *fakeDisplay) next(t *testing.T, method string) displayCall {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case call := <-display.feed:
			if call.method == method {
				return call
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", method)
		}
	}
}

func (display *fakeDisplay) count(method string) int {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	count := 0
	for _, call := range display.calls {
		if call.method == method {
			count++
		}
	}
	return count
}

func (display *fakeDisplay) methods() []string {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	methods := make([]string, len(display.calls))
	for index, call := range display.calls {
		methods[index] = call.method
	}
	return methods
}

type fakeReporter struct {
	mutex    sync.Mutex
	warnings []string
	errors   []string
}

func (reporter *fakeReporter) Warn(message string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.warnings = append(reporter.warnings, message)
}

func (reporter *fakeReporter) Error(message string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.errors = append(reporter.errors, message)
}

func (reporter *fakeReporter) Warnings() []string {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return append([]string(nil), reporter.warnings...)
}

type testEnvironment struct {
	workspace string
	config    *config.Config
	display   *fakeDisplay
	reporter  *fakeReporter
	clock     *clock.FakeClock
	logger    *slog.Logger
}

func newTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()
	return &testEnvironment{
		workspace: t.TempDir(),
		config:    config.Default(),
		display:   newFakeDisplay(),
		reporter:  &fakeReporter{},
		clock:     clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (environment *testEnvironment) options() Options {
	return Options{
		Workspace: environment.workspace,
		Config:    environment.config,
		Display:   environment.display,
		Reporter:  environment.reporter,
		Clock:     environment.clock,
		Logger:    environment.logger,
	}
}

// useTool installs a fake sourcemap tool running script.
func (environment *testEnvironment) useTool(t *testing.T, script string) {
	t.Helper()
	environment.config.Tool = testutil.WriteExecutable(t, t.TempDir(), "rojo", script)
}

// replaceFile writes name atomically so the watcher sees one event.
func (environment *testEnvironment) replaceFile(t *testing.T, name, contents string) {
	t.Helper()
	temporary := testutil.WriteFile(t, environment.workspace, "."+name+".tmp", contents)
	if err := os.Rename(temporary, filepath.Join(environment.workspace, name)); err != nil {
		t.Fatal(err)
	}
}

// settle delivers the watcher's pending event.
func (environment *testEnvironment) settle() {
	environment.clock.WaitForTimers(1)
	environment.clock.Advance(fswatch.DebounceWindow)
}

const fileSnapshot = `{
	"name": "Game",
	"className": "DataModel",
	"children": [
		{"name": "Main", "className": "Script", "filePaths": ["src/main.server.luau"]},
		{"name": "Main.spec", "className": "ModuleScript", "filePaths": ["src/main.spec.luau"]},
	],
}`

func TestConnectUsingFile(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.config.IgnoreGlobs = []string{"**/*.spec.luau"}
	testutil.WriteFile(t, environment.workspace, "sourcemap.json", fileSnapshot)

	session, err := ConnectUsingFile(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingFile: %v", err)
	}
	defer session.Destroy()

	if session.Mode() != config.ModeFile {
		t.Errorf("Mode = %q", session.Mode())
	}
	want := []string{"SetLoading", "ClearError", "Update"}
	if got := environment.display.methods(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	loading := environment.display.next(t, "SetLoading")
	if loading.argument != filepath.Join(environment.workspace, "sourcemap.json") {
		t.Errorf("loading path = %q", loading.argument)
	}
	update := environment.display.next(t, "Update")
	if update.workspace != session.Workspace() || update.force {
		t.Errorf("update = %+v", update)
	}
	if len(update.snapshot.Children) != 1 || update.snapshot.Children[0].Name != "Main" {
		t.Errorf("ignored node survived filtering: %+v", update.snapshot.Children)
	}

	if !session.Refresh() {
		t.Fatal("Refresh returned false with a snapshot applied")
	}
	if refreshed := environment.display.next(t, "Update"); !refreshed.force || refreshed.snapshot != update.snapshot {
		t.Errorf("refresh update = %+v", refreshed)
	}

	environment.replaceFile(t, "sourcemap.json", `{"name": "Game", "className": "DataModel"}`)
	environment.settle()
	if changed := environment.display.next(t, "Update"); changed.snapshot.Children != nil {
		t.Errorf("changed file not applied: %+v", changed.snapshot)
	}

	environment.replaceFile(t, "sourcemap.json", `{"name": `)
	environment.settle()
	if failed := environment.display.next(t, "SetError"); !strings.Contains(failed.argument, "sourcemap.json") {
		t.Errorf("error message = %q", failed.argument)
	}

	session.Destroy()
	environment.display.next(t, "Delete")
	session.Destroy()
	if session.Refresh() {
		t.Error("Refresh succeeded after Destroy")
	}
	session.Reload()
	testutil.RequireNoReceive(t, environment.display.feed, 50*time.Millisecond, "display call after Destroy")
}

func TestConnectUsingFileMissing(t *testing.T) {
	environment := newTestEnvironment(t)

	session, err := ConnectUsingFile(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingFile: %v", err)
	}
	defer session.Destroy()

	environment.display.next(t, "SetError")
	if session.Refresh() {
		t.Error("Refresh returned true without a snapshot")
	}

	environment.replaceFile(t, "sourcemap.json", fileSnapshot)
	environment.settle()
	environment.display.next(t, "ClearError")
	environment.display.next(t, "Update")
}

func TestConnectValidatesOptions(t *testing.T) {
	if _, err := Connect(context.Background(), Options{Display: newFakeDisplay()}); err == nil {
		t.Error("Connect accepted a missing workspace")
	}
	if _, err := Connect(context.Background(), Options{Workspace: t.TempDir()}); err == nil {
		t.Error("Connect accepted a missing display")
	}

	environment := newTestEnvironment(t)
	environment.config.Mode = config.ModeFile
	environment.config.IgnoreGlobs = []string{"[unterminated"}
	if _, err := Connect(context.Background(), environment.options()); err == nil {
		t.Error("Connect accepted an invalid ignore glob")
	}
}

const projectFile = `{
	// The overlay supplies the folder path the tool leaves out.
	"name": "Game",
	"tree": {
		"$className": "DataModel",
		"Shared": {"$path": "src/shared"},
	},
}`

const singleDocumentTool = `
printf '%s\n' "$@" > arguments.txt
echo run >> runs.txt
printf '{"name":"Game","className":"DataModel","children":[{"name":"Shared","className":"Folder"}]}\n'
exec sleep 30
`

func TestConnectUsingToolMergesDescriptor(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, singleDocumentTool)
	environment.config.IncludeNonScripts = true
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)
	if err := os.MkdirAll(filepath.Join(environment.workspace, "src", "shared"), 0o755); err != nil {
		t.Fatal(err)
	}

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	projectPath := filepath.Join(environment.workspace, "default.project.json")
	if loading := environment.display.next(t, "SetLoading"); loading.argument != projectPath {
		t.Errorf("loading path = %q, want %q", loading.argument, projectPath)
	}
	update := environment.display.next(t, "Update")
	shared := update.snapshot.Children[0]
	if shared.FolderPath != "src/shared" {
		t.Errorf("Shared folder path = %q, want src/shared", shared.FolderPath)
	}

	arguments, err := os.ReadFile(filepath.Join(environment.workspace, "arguments.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "sourcemap\n--watch\ndefault.project.json\n--include-non-scripts\n"
	if string(arguments) != want {
		t.Errorf("arguments = %q, want %q", arguments, want)
	}

	session.lifecycle.Lock()
	process := session.process
	session.lifecycle.Unlock()
	session.Destroy()
	environment.display.next(t, "Delete")
	testutil.RequireClosed(t, process.Done(), waitTimeout, "tool not stopped by Destroy")
}

func TestConnectUsingToolMalformedDescriptor(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, singleDocumentTool)
	testutil.WriteFile(t, environment.workspace, "default.project.json", `{"name": `)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	update := environment.display.next(t, "Update")
	if update.snapshot.Children[0].FolderPath != "" {
		t.Errorf("folder path merged without a descriptor: %q", update.snapshot.Children[0].FolderPath)
	}
	warnings := environment.reporter.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "default.project.json") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestConnectUsingToolWaitsForProjectFile(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, singleDocumentTool)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	environment.display.next(t, "Delete")
	if _, err := os.Stat(filepath.Join(environment.workspace, "runs.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("tool started without a project file")
	}

	environment.replaceFile(t, "default.project.json", projectFile)
	environment.settle()
	environment.display.next(t, "Update")

	session.lifecycle.Lock()
	process := session.process
	session.lifecycle.Unlock()
	if err := os.Remove(filepath.Join(environment.workspace, "default.project.json")); err != nil {
		t.Fatal(err)
	}
	environment.settle()
	environment.display.next(t, "Delete")
	testutil.RequireClosed(t, process.Done(), waitTimeout, "tool not stopped after the project file was deleted")
}

func TestConnectUsingToolUnchangedProjectKeepsProcess(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, singleDocumentTool)
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()
	environment.display.next(t, "Update")

	environment.replaceFile(t, "default.project.json", projectFile)
	environment.settle()
	environment.display.next(t, "SetLoading")

	runs, err := os.ReadFile(filepath.Join(environment.workspace, "runs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(runs), "run") != 1 {
		t.Errorf("tool started %d times for identical project contents", strings.Count(string(runs), "run"))
	}
}

func TestReloadRespawnsTool(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, singleDocumentTool)
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()
	first := environment.display.next(t, "Update")

	session.lifecycle.Lock()
	firstProcess := session.process
	session.lifecycle.Unlock()

	session.Reload()
	testutil.RequireClosed(t, firstProcess.Done(), waitTimeout, "first tool run not killed by Reload")
	second := environment.display.next(t, "Update")
	if second.snapshot == first.snapshot {
		t.Error("reloaded document was skipped as a duplicate")
	}

	runs, err := os.ReadFile(filepath.Join(environment.workspace, "runs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(runs), "run") != 2 {
		t.Errorf("tool ran %d times, want 2", strings.Count(string(runs), "run"))
	}
}

func TestReloadShowsLoadingBeforeOutput(t *testing.T) {
	environment := newTestEnvironment(t)
	// Only the first run prints; later runs stay silent.
	environment.useTool(t, `
if [ -f runs.txt ]; then
	echo run >> runs.txt
	exec sleep 30
fi
echo run >> runs.txt
printf '{"name":"Game","className":"DataModel"}\n'
exec sleep 30
`)
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()
	environment.display.next(t, "Update")

	session.Reload()
	loading := environment.display.next(t, "SetLoading")
	if want := filepath.Join(environment.workspace, "default.project.json"); loading.argument != want {
		t.Errorf("loading path = %q, want %q", loading.argument, want)
	}
}

func TestIdenticalDocumentsSkipped(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, `
printf '{"name":"Game","className":"DataModel"}\n'
sleep 0.05
printf '{"name":"Game","className":"DataModel"}\n'
exec sleep 30
`)
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	first := environment.display.next(t, "Update")
	second := environment.display.next(t, "Update")
	if second.snapshot != first.snapshot {
		t.Error("identical document was applied again")
	}
	if count := environment.display.count("ClearError"); count != 1 {
		t.Errorf("ClearError called %d times, want 1", count)
	}
}

func TestToolExitSurfacesStderr(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.useTool(t, `
echo "project file is invalid" >&2
exit 3
`)
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	failed := environment.display.next(t, "SetError")
	if !strings.Contains(failed.argument, "exited with code 3") || !strings.Contains(failed.argument, "project file is invalid") {
		t.Errorf("error message = %q", failed.argument)
	}
}

func TestSpawnFailureIsReported(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.config.Tool = filepath.Join(t.TempDir(), "missing-tool")
	testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)

	session, err := ConnectUsingTool(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingTool: %v", err)
	}
	defer session.Destroy()

	environment.display.next(t, "SetError")
	if warnings := environment.reporter.Warnings(); len(warnings) != 1 || !strings.Contains(warnings[0], "unavailable") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestConnectModeSelection(t *testing.T) {
	versionRunner := func(output string) rojo.VersionRunner {
		return func(context.Context, string, string) (string, error) { return output, nil }
	}

	t.Run("auto falls back to the file", func(t *testing.T) {
		environment := newTestEnvironment(t)
		options := environment.options()
		options.Gate = rojo.NewGateWithRunner("rojo", environment.clock, versionRunner("Rojo 6.2.0"))

		session, err := Connect(context.Background(), options)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		defer session.Destroy()
		if session.Mode() != config.ModeFile {
			t.Errorf("Mode = %q, want file", session.Mode())
		}
		if warnings := environment.reporter.Warnings(); len(warnings) != 1 || !strings.Contains(warnings[0], "sourcemap.json") {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("auto uses a supported tool", func(t *testing.T) {
		environment := newTestEnvironment(t)
		environment.useTool(t, singleDocumentTool)
		testutil.WriteFile(t, environment.workspace, "default.project.json", projectFile)
		options := environment.options()
		options.Gate = rojo.NewGateWithRunner("rojo", environment.clock, versionRunner("Rojo 7.4.1"))

		session, err := Connect(context.Background(), options)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		defer session.Destroy()
		if session.Mode() != config.ModeTool {
			t.Errorf("Mode = %q, want rojo", session.Mode())
		}
		environment.display.next(t, "Update")
	})

	t.Run("explicit file mode skips the gate", func(t *testing.T) {
		environment := newTestEnvironment(t)
		environment.config.Mode = config.ModeFile
		options := environment.options()
		options.Gate = rojo.NewGateWithRunner("rojo", environment.clock, func(context.Context, string, string) (string, error) {
			t.Error("version gate consulted in file mode")
			return "", errors.New("unreachable")
		})

		session, err := Connect(context.Background(), options)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		defer session.Destroy()
		if session.Mode() != config.ModeFile {
			t.Errorf("Mode = %q, want file", session.Mode())
		}
	})
}

func TestSnapshotCacheRestoredOnConnect(t *testing.T) {
	environment := newTestEnvironment(t)
	environment.config.Cache.Directory = t.TempDir()
	testutil.WriteFile(t, environment.workspace, "sourcemap.json", fileSnapshot)

	first, err := ConnectUsingFile(context.Background(), environment.options())
	if err != nil {
		t.Fatalf("ConnectUsingFile: %v", err)
	}
	environment.display.next(t, "Update")
	first.Destroy()
	environment.display.next(t, "Delete")

	if err := os.Remove(filepath.Join(environment.workspace, "sourcemap.json")); err != nil {
		t.Fatal(err)
	}

	display := newFakeDisplay()
	options := environment.options()
	options.Display = display
	second, err := ConnectUsingFile(context.Background(), options)
	if err != nil {
		t.Fatalf("ConnectUsingFile: %v", err)
	}
	defer second.Destroy()

	methods := display.methods()
	if len(methods) == 0 || methods[0] != "Update" {
		t.Fatalf("calls = %v, want the cached snapshot first", methods)
	}
	cached := display.next(t, "Update")
	if cached.snapshot.Name != "Game" || len(cached.snapshot.Children) != 2 {
		t.Errorf("cached snapshot = %+v", cached.snapshot)
	}
	display.next(t, "SetError")
	if !second.Refresh() {
		t.Error("Refresh returned false with a cached snapshot")
	}
}
