// Package render runs animation scene code through an external renderer CLI.
//
// The [Dispatcher] is the whole pipeline for one call:
//
//   - [NormalizeCode] strips a surrounding markdown fence from the payload
//   - the code is written to the workspace's script file
//   - a [Selector] picks the opengl or cairo backend with a GPU probe
//   - [CommandSpec.Build] maps the quality preset to a flag and builds the command line
//   - a [Runner] executes it in the working directory and captures its output
//
// Execution never fails with an error. The [Outcome] records whether the
// renderer succeeded, exited non-zero, or could not be run at all, and
// [Outcome.Report] formats it as the text tool callers receive.
//
// # Timeouts
//
// [ExecRunner] waits indefinitely unless Timeout is set. On timeout or context
// cancellation the renderer gets SIGTERM, then SIGKILL after KillGrace.
//
// # Basic Usage
//
//	ws, _ := workspace.New(workspace.Config{BaseDir: "media"})
//	d, _ := render.New(render.Config{Workspace: ws})
//
//	out := d.Execute(ctx, render.Request{Code: src, Quality: "high_quality"})
//	fmt.Println(out.Report())
package render
