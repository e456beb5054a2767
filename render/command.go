package render

import "strings"

// DefaultExecutable is the renderer CLI looked up on the search path.
const DefaultExecutable = "manim"

// Command is a fully resolved external process invocation.
type Command struct {
	// Name is the executable, resolved through the search path when it has no separator.
	Name string

	// Args are the arguments after Name.
	Args []string

	// Dir is the working directory of the process.
	Dir string
}

// String returns the command line as a single space-joined string.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandSpec describes what to render. It is turned into a Command by Build.
type CommandSpec struct {
	Executable string
	Renderer   Renderer
	Quality    Quality
	Preview    bool
	ScriptPath string
	Dir        string
}

// Build assembles the command line:
//
//	<exe> --renderer <renderer> [-ql|-qm|-qh|-qk] [-p] <script>
//
// Unknown qualities contribute no flag.
func (s CommandSpec) Build() Command {
	exe := s.Executable
	if exe == "" {
		exe = DefaultExecutable
	}

	args := make([]string, 0, 5)
	if s.Renderer != "" {
		args = append(args, "--renderer", string(s.Renderer))
	}
	if flag, ok := s.Quality.Flag(); ok {
		args = append(args, flag)
	}
	if s.Preview {
		args = append(args, "-p")
	}
	args = append(args, s.ScriptPath)

	return Command{Name: exe, Args: args, Dir: s.Dir}
}
