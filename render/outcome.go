package render

import (
	"fmt"
	"strings"
)

// Status classifies a render outcome.
type Status string

const (
	// StatusSucceeded means the renderer exited 0.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the renderer ran and exited non-zero.
	StatusFailed Status = "failed"

	// StatusError means the renderer could not be run to completion:
	// filesystem errors, spawn errors, timeout, or cancellation.
	StatusError Status = "error"
)

// Outcome is the result of one Execute call.
type Outcome struct {
	Status   Status
	Renderer Renderer

	// Quality is the label as requested, known preset or not.
	Quality string

	// Dir is the working directory the renderer ran in.
	Dir     string
	Command Command
	Process ProcessResult

	// ScriptDigest is the BLAKE3-256 hex digest of the script that was written.
	ScriptDigest string

	// Err is set when Status is StatusError.
	Err error
}

// OK reports whether the render succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}

// Report renders the outcome as the text returned to tool callers.
func (o Outcome) Report() string {
	var b strings.Builder
	switch o.Status {
	case StatusSucceeded:
		b.WriteString("Execution successful.\n")
		fmt.Fprintf(&b, "Renderer used: %s\n", o.Renderer)
		fmt.Fprintf(&b, "Quality: %s\n", o.Quality)
		fmt.Fprintf(&b, "Video generated in directory: %s\n", o.Dir)
		fmt.Fprintf(&b, "Command: %s\n", o.Command)
		fmt.Fprintf(&b, "Output:\n%s", o.Process.Stdout)
	case StatusFailed:
		b.WriteString("Execution failed.\n")
		fmt.Fprintf(&b, "Renderer used: %s\n", o.Renderer)
		fmt.Fprintf(&b, "Quality: %s\n", o.Quality)
		fmt.Fprintf(&b, "Command: %s\n", o.Command)
		fmt.Fprintf(&b, "Error:\n%s\n", o.Process.Stderr)
		fmt.Fprintf(&b, "Output:\n%s", o.Process.Stdout)
	default:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		fmt.Fprintf(&b, "Error during execution: %s", msg)
	}
	return b.String()
}
