package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolmanim/workspace"
)

// fakeRunner records commands and returns a canned result.
type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	scripts  []string
	result   ProcessResult
	err      error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (ProcessResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	script, _ := os.ReadFile(cmd.Args[len(cmd.Args)-1])
	f.scripts = append(f.scripts, string(script))
	return f.result, f.err
}

func (f *fakeRunner) last() Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[len(f.commands)-1]
}

// mockLogger captures log messages for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, s)
}

func (l *mockLogger) Info(msg string, _ ...any)  { l.add("INFO: " + msg) }
func (l *mockLogger) Warn(msg string, _ ...any)  { l.add("WARN: " + msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.add("ERROR: " + msg) }

func noGPU(string) (string, error) { return "", errors.New("not found") }

func newTestDispatcher(t *testing.T, runner Runner, mutate func(*Config)) *Dispatcher {
	t.Helper()
	ws, err := workspace.New(workspace.Config{BaseDir: filepath.Join(t.TempDir(), "media")})
	require.NoError(t, err)

	cfg := Config{
		Workspace: ws,
		Selector:  NewSelector(RendererAuto, "", noGPU),
		Runner:    runner,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

func TestNewRequiresWorkspace(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrWorkspaceRequired)
}

func TestExecuteFencedHighQualityScenario(t *testing.T) {
	runner := &fakeRunner{result: ProcessResult{ExitCode: 0, Stdout: "File ready at scene.mp4\n"}}
	d := newTestDispatcher(t, runner, nil)

	out := d.Execute(context.Background(), Request{
		Code:    "```python\nfrom x import *\n```",
		Quality: "high_quality",
	})

	require.Equal(t, StatusSucceeded, out.Status, out.Report())
	assert.True(t, out.OK())

	script, err := os.ReadFile(filepath.Join(d.Workspace().WorkDir(), workspace.DefaultScriptName))
	require.NoError(t, err)
	assert.Equal(t, "from x import *", string(script))

	cmd := runner.last()
	assert.Equal(t, 1, countFlag(cmd.Args, "-qh"))
	assert.Equal(t, d.Workspace().WorkDir(), cmd.Dir)
	assert.Equal(t, []string{"--renderer", "cairo", "-qh", "-p", filepath.Join(cmd.Dir, "scene.py")}, cmd.Args)
}

func TestExecuteSuccessReport(t *testing.T) {
	runner := &fakeRunner{result: ProcessResult{Stdout: "rendered 1 scene\n"}}
	d := newTestDispatcher(t, runner, nil)

	out := d.Execute(context.Background(), Request{Code: "from manim import *", Quality: "medium_quality"})
	dir := d.Workspace().WorkDir()

	want := "Execution successful.\n" +
		"Renderer used: cairo\n" +
		"Quality: medium_quality\n" +
		"Video generated in directory: " + dir + "\n" +
		"Command: manim --renderer cairo -qm -p " + filepath.Join(dir, "scene.py") + "\n" +
		"Output:\nrendered 1 scene\n"
	assert.Equal(t, want, out.Report())
	assert.Contains(t, out.Report(), "successful")
	assert.Equal(t, 1, d.Workspace().Usage().Count(dir))
}

func TestExecuteFailureReport(t *testing.T) {
	runner := &fakeRunner{result: ProcessResult{
		ExitCode: 1,
		Stdout:   "partial\n",
		Stderr:   "NameError: name 'Circl' is not defined\n",
	}}
	logger := &mockLogger{}
	d := newTestDispatcher(t, runner, func(c *Config) {
		c.Selector = NewSelector(RendererAuto, "", func(f string) (string, error) { return f, nil })
		c.Logger = logger
	})

	out := d.Execute(context.Background(), Request{Code: "x", Quality: "low_quality"})

	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.OK())
	report := out.Report()
	assert.True(t, strings.HasPrefix(report, "Execution failed.\nRenderer used: opengl\nQuality: low_quality\nCommand: manim --renderer opengl -ql -p "))
	assert.Contains(t, report, "Error:\nNameError: name 'Circl' is not defined\n\nOutput:\npartial\n")
	assert.NotContains(t, report, "successful")
	assert.Zero(t, d.Workspace().Usage().Count(d.Workspace().WorkDir()))
	assert.Contains(t, logger.messages, "WARN: renderer exited non-zero")
}

func TestExecuteUnknownQualityPassesThrough(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, runner, nil)

	out := d.Execute(context.Background(), Request{Code: "x", Quality: "ultra"})

	assert.Equal(t, "ultra", out.Quality)
	for _, f := range []string{"-ql", "-qm", "-qh", "-qk"} {
		assert.Zero(t, countFlag(runner.last().Args, f))
	}
	assert.Contains(t, out.Report(), "Quality: ultra\n")
}

func TestExecuteEmptyQualityAddsNoFlag(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, runner, nil)

	out := d.Execute(context.Background(), Request{Code: "x", Quality: ""})

	assert.Equal(t, QualityMedium, d.DefaultQuality())
	assert.Empty(t, out.Quality)
	for _, f := range []string{"-ql", "-qm", "-qh", "-qk"} {
		assert.Zero(t, countFlag(runner.last().Args, f))
	}
	assert.Contains(t, out.Report(), "Quality: \n")
}

func TestExecuteRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New(`start process: exec: "manim": executable file not found in $PATH`)}
	logger := &mockLogger{}
	d := newTestDispatcher(t, runner, func(c *Config) { c.Logger = logger })

	out := d.Execute(context.Background(), Request{Code: "```\nx = 1\n```"})

	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, `Error during execution: start process: exec: "manim": executable file not found in $PATH`, out.Report())
	assert.Contains(t, logger.messages, "ERROR: render error")

	// the script stays in place
	script, err := os.ReadFile(filepath.Join(d.Workspace().WorkDir(), "scene.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(script))
}

func TestExecuteWorkspaceError(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, runner, nil)

	// A file where the working directory should be makes Prepare fail.
	require.NoError(t, os.WriteFile(d.Workspace().WorkDir(), []byte("in the way"), 0o644))

	out := d.Execute(context.Background(), Request{Code: "x"})
	assert.Equal(t, StatusError, out.Status)
	assert.True(t, strings.HasPrefix(out.Report(), "Error during execution: create working directory:"), out.Report())
	assert.Empty(t, runner.commands)
}

func TestExecuteCanceledContext(t *testing.T) {
	d := newTestDispatcher(t, &fakeRunner{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := d.Execute(ctx, Request{Code: "x"})
	assert.Equal(t, StatusError, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestExecuteOptions(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, runner, func(c *Config) {
		c.Executable = "/envs/manim/bin/manim"
		c.DefaultQuality = QualityProduction
		c.DisablePreview = true
	})

	assert.Equal(t, QualityProduction, d.DefaultQuality())
	out := d.Execute(context.Background(), Request{Code: "x", Quality: string(d.DefaultQuality())})

	assert.Equal(t, "production_quality", out.Quality)
	cmd := runner.last()
	assert.Equal(t, "/envs/manim/bin/manim", cmd.Name)
	assert.Zero(t, countFlag(cmd.Args, "-p"))
	assert.Equal(t, 1, countFlag(cmd.Args, "-qk"))
}

func TestExecuteBackToBackOverwritesSharedScript(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, runner, nil)

	first := d.Execute(context.Background(), Request{Code: "first = 1"})
	second := d.Execute(context.Background(), Request{Code: "second = 2"})

	assert.Equal(t, first.Dir, second.Dir)
	assert.Equal(t, []string{"first = 1", "second = 2"}, runner.scripts)
	assert.NotEqual(t, first.ScriptDigest, second.ScriptDigest)
	assert.Len(t, first.ScriptDigest, 64)
	assert.Equal(t, 2, d.Workspace().Usage().Count(first.Dir))
}

func TestExecuteIsolatedConcurrent(t *testing.T) {
	runner := &fakeRunner{}
	ws, err := workspace.New(workspace.Config{BaseDir: t.TempDir(), Isolate: true})
	require.NoError(t, err)
	d, err := New(Config{Workspace: ws, Runner: runner, Selector: NewSelector(RendererCairo, "", nil)})
	require.NoError(t, err)

	const n = 8
	outs := make([]Outcome, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs[i] = d.Execute(context.Background(), Request{Code: "x"})
		}()
	}
	wg.Wait()

	dirs := map[string]bool{}
	for _, o := range outs {
		require.Equal(t, StatusSucceeded, o.Status, o.Report())
		dirs[o.Dir] = true
	}
	assert.Len(t, dirs, n)
	assert.Len(t, ws.Usage().Dirs(), n)
}
