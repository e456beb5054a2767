package render

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/jonwraymond/toolmanim/workspace"
)

// Errors for render operations.
var (
	// ErrWorkspaceRequired is returned by New when Config.Workspace is nil.
	ErrWorkspaceRequired = errors.New("render: workspace is required")

	// ErrEmptyExecutable is returned when a command has no executable.
	ErrEmptyExecutable = errors.New("render: empty executable")

	// ErrTimeout is returned when the renderer exceeds the configured timeout.
	ErrTimeout = errors.New("render timed out")
)

// Logger is the interface for logging.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Request is one "execute animation code" call.
type Request struct {
	// Code is the scene source, optionally wrapped in a markdown fence.
	Code string

	// Quality is taken as given: a preset label or any other string,
	// including "", which adds no flag. Callers that let the user omit it
	// fill in Dispatcher.DefaultQuality.
	Quality string
}

// Config configures a Dispatcher.
type Config struct {
	// Workspace provides the working directory and script file.
	// Required.
	Workspace *workspace.Workspace

	// Executable is the renderer CLI.
	// Default: manim
	Executable string

	// Selector picks the renderer.
	// Default: GPU probe for nvidia-smi on the search path.
	Selector *Selector

	// Runner executes the renderer.
	// Default: an ExecRunner without timeout.
	Runner Runner

	// DefaultQuality is reported by Dispatcher.DefaultQuality for callers
	// whose input omits a quality.
	// Default: medium_quality
	DefaultQuality Quality

	// DisablePreview drops the -p flag.
	DisablePreview bool

	// Logger is an optional logger for render events.
	Logger Logger
}

// Dispatcher runs animation code through the external renderer.
//
// In shared-workspace mode executions are serialized, since every call
// writes the same script file. Isolated workspaces run concurrently.
type Dispatcher struct {
	ws             *workspace.Workspace
	executable     string
	selector       *Selector
	runner         Runner
	defaultQuality Quality
	preview        bool
	logger         Logger

	mu sync.Mutex
}

// New creates a Dispatcher with the given configuration.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Workspace == nil {
		return nil, ErrWorkspaceRequired
	}

	executable := cfg.Executable
	if executable == "" {
		executable = DefaultExecutable
	}

	selector := cfg.Selector
	if selector == nil {
		selector = NewSelector(RendererAuto, DefaultGPUProbe, nil)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}

	quality := cfg.DefaultQuality
	if quality == "" {
		quality = DefaultQuality
	}

	return &Dispatcher{
		ws:             cfg.Workspace,
		executable:     executable,
		selector:       selector,
		runner:         runner,
		defaultQuality: quality,
		preview:        !cfg.DisablePreview,
		logger:         cfg.Logger,
	}, nil
}

// DefaultQuality returns the quality to use when a caller supplies none.
func (d *Dispatcher) DefaultQuality() Quality {
	return d.defaultQuality
}

// Workspace returns the dispatcher's workspace.
func (d *Dispatcher) Workspace() *workspace.Workspace {
	return d.ws
}

// Execute writes the request's code into the working directory, runs the
// renderer on it, and reports the outcome. It never returns an error: every
// failure is carried in the Outcome. Nothing is rolled back on failure.
func (d *Dispatcher) Execute(ctx context.Context, req Request) Outcome {
	quality := req.Quality
	out := Outcome{Quality: quality}

	if !d.ws.Isolated() {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	slot, err := d.ws.Prepare(ctx)
	if err != nil {
		return d.fail(out, err)
	}
	out.Dir = slot.Dir

	code := NormalizeCode(req.Code)
	out.ScriptDigest = digest(code)
	if err := d.ws.WriteScript(slot, code); err != nil {
		return d.fail(out, err)
	}

	out.Renderer = d.selector.Select()
	out.Command = CommandSpec{
		Executable: d.executable,
		Renderer:   out.Renderer,
		Quality:    Quality(quality),
		Preview:    d.preview,
		ScriptPath: slot.ScriptPath,
		Dir:        slot.Dir,
	}.Build()

	d.logInfo("rendering",
		"renderer", out.Renderer,
		"quality", quality,
		"dir", slot.Dir,
		"isolated", !slot.Shared(),
		"script_digest", out.ScriptDigest)

	proc, err := d.runner.Run(ctx, out.Command)
	out.Process = proc
	if err != nil {
		return d.fail(out, err)
	}

	if proc.ExitCode != 0 {
		out.Status = StatusFailed
		if d.logger != nil {
			d.logger.Warn("renderer exited non-zero",
				"exit_code", proc.ExitCode,
				"duration", proc.Duration.String(),
				"dir", slot.Dir)
		}
		return out
	}

	out.Status = StatusSucceeded
	renders := d.ws.MarkUsed(slot.Dir)
	d.logInfo("render finished",
		"duration", proc.Duration.String(),
		"dir", slot.Dir,
		"renders", renders)
	return out
}

func (d *Dispatcher) fail(out Outcome, err error) Outcome {
	out.Status = StatusError
	out.Err = err
	if d.logger != nil {
		d.logger.Error("render error", "error", err, "dir", out.Dir)
	}
	return out
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func digest(code string) string {
	sum := blake3.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
