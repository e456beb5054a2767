package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Default layout under the media directory.
const (
	DefaultWorkDir    = "manim_tmp"
	DefaultScriptName = "scene.py"
)

// Errors returned by workspace operations.
var (
	// ErrBaseDirRequired is returned by New when no media directory is configured.
	ErrBaseDirRequired = errors.New("workspace: media directory is required")

	// ErrInvalidName is returned when a work dir or script name is not a single path element.
	ErrInvalidName = errors.New("workspace: invalid name")

	// ErrNotDirectory is returned when a cleanup target exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrOutsideMedia is returned when confinement is on and a cleanup target
	// lies outside the media directory.
	ErrOutsideMedia = errors.New("path is outside the media directory")
)

// Logger is the logging interface used by the workspace.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures a Workspace.
type Config struct {
	// BaseDir is the media directory. It is created by New.
	// Required.
	BaseDir string

	// WorkDir is the working directory name under BaseDir.
	// Default: manim_tmp
	WorkDir string

	// ScriptName is the file the payload is written to.
	// Default: scene.py
	ScriptName string

	// Isolate gives every Prepare call its own directory below WorkDir
	// instead of reusing WorkDir itself.
	Isolate bool

	// ConfineCleanup rejects cleanup targets outside BaseDir.
	// Default: false (any path the process can reach).
	ConfineCleanup bool

	// Logger is an optional logger for workspace events.
	Logger Logger
}

// Slot is the directory and script path handed to one render.
type Slot struct {
	// ID is empty for the shared working directory, or a UUID when isolated.
	ID string

	// Dir is the absolute working directory.
	Dir string

	// ScriptPath is the absolute path of the script inside Dir.
	ScriptPath string
}

// Shared reports whether the slot is the fixed, reused working directory.
func (s Slot) Shared() bool {
	return s.ID == ""
}

// Workspace owns the media directory tree.
type Workspace struct {
	baseDir    string
	workDir    string
	scriptName string
	isolate    bool
	confine    bool
	usage      *Usage
	logger     Logger
	newID      func() string
}

// New resolves the media directory, creates it, and returns a Workspace.
func New(cfg Config) (*Workspace, error) {
	base := strings.TrimSpace(cfg.BaseDir)
	if base == "" {
		return nil, ErrBaseDirRequired
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve media directory %q: %w", base, err)
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = DefaultWorkDir
	}
	scriptName := cfg.ScriptName
	if scriptName == "" {
		scriptName = DefaultScriptName
	}
	for _, name := range []string{workDir, scriptName} {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	return &Workspace{
		baseDir:    abs,
		workDir:    filepath.Join(abs, workDir),
		scriptName: scriptName,
		isolate:    cfg.Isolate,
		confine:    cfg.ConfineCleanup,
		usage:      NewUsage(),
		logger:     cfg.Logger,
		newID:      uuid.NewString,
	}, nil
}

func validateName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// BaseDir returns the absolute media directory.
func (w *Workspace) BaseDir() string {
	return w.baseDir
}

// WorkDir returns the absolute fixed working directory.
func (w *Workspace) WorkDir() string {
	return w.workDir
}

// Isolated reports whether Prepare hands out per-call directories.
func (w *Workspace) Isolated() bool {
	return w.isolate
}

// Usage returns the registry of directories that produced a successful render.
func (w *Workspace) Usage() *Usage {
	return w.usage
}

// Prepare ensures a working directory exists and returns it.
// In shared mode it is the same directory on every call.
func (w *Workspace) Prepare(ctx context.Context) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return Slot{}, err
	}

	slot := Slot{Dir: w.workDir}
	if w.isolate {
		slot.ID = w.newID()
		slot.Dir = filepath.Join(w.workDir, slot.ID)
	}
	slot.ScriptPath = filepath.Join(slot.Dir, w.scriptName)

	if err := os.MkdirAll(slot.Dir, 0o755); err != nil {
		return Slot{}, fmt.Errorf("create working directory: %w", err)
	}
	return slot, nil
}

// WriteScript writes code verbatim to the slot's script file, replacing any
// previous content.
func (w *Workspace) WriteScript(slot Slot, code string) error {
	if err := os.WriteFile(slot.ScriptPath, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

// MarkUsed records a successful render in dir and returns its render count.
func (w *Workspace) MarkUsed(dir string) int {
	return w.usage.Mark(dir)
}
