package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanupStatus classifies a cleanup outcome.
type CleanupStatus string

const (
	CleanupRemoved  CleanupStatus = "removed"
	CleanupNotFound CleanupStatus = "not_found"
	CleanupFailed   CleanupStatus = "failed"
)

// CleanupResult is the outcome of Remove.
type CleanupResult struct {
	Status CleanupStatus
	Path   string
	Err    error
}

// OK reports whether the directory was removed.
func (r CleanupResult) OK() bool {
	return r.Status == CleanupRemoved
}

// Report renders the result as the text returned to tool callers.
func (r CleanupResult) Report() string {
	switch r.Status {
	case CleanupRemoved:
		return fmt.Sprintf("Cleanup successful for directory: %s", r.Path)
	case CleanupNotFound:
		return fmt.Sprintf("Directory not found: %s", r.Path)
	default:
		msg := "unknown error"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return fmt.Sprintf("Failed to clean up directory: %s. Error: %s", r.Path, msg)
	}
}

// Remove deletes dir and everything below it. It never returns an error;
// an absent path is reported as CleanupNotFound.
func (w *Workspace) Remove(ctx context.Context, dir string) CleanupResult {
	res := w.remove(ctx, dir)
	if w.logger != nil {
		switch res.Status {
		case CleanupRemoved:
			w.logger.Info("directory removed", "dir", dir)
		case CleanupNotFound:
			w.logger.Info("cleanup target not found", "dir", dir)
		default:
			w.logger.Warn("cleanup failed", "dir", dir, "error", res.Err)
		}
	}
	return res
}

func (w *Workspace) remove(ctx context.Context, dir string) CleanupResult {
	fail := func(err error) CleanupResult {
		return CleanupResult{Status: CleanupFailed, Path: dir, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if w.confine {
		inside, err := w.contains(dir)
		if err != nil {
			return fail(err)
		}
		if !inside {
			return fail(ErrOutsideMedia)
		}
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return CleanupResult{Status: CleanupNotFound, Path: dir}
	}
	if err != nil {
		return fail(err)
	}
	if !info.IsDir() {
		return fail(ErrNotDirectory)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fail(err)
	}
	return CleanupResult{Status: CleanupRemoved, Path: dir}
}

// contains reports whether path resolves to the media directory or below it.
func (w *Workspace) contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(w.baseDir, abs)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}
