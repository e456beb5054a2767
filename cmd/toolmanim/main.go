package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonwraymond/tooldiscovery/tooldoc"

	"github.com/jonwraymond/toolmanim/config"
	"github.com/jonwraymond/toolmanim/logging"
	"github.com/jonwraymond/toolmanim/render"
	"github.com/jonwraymond/toolmanim/server"
	"github.com/jonwraymond/toolmanim/toolset"
	"github.com/jonwraymond/toolmanim/workspace"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		return 1
	}
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	return c.run(args)
}

// cli holds the process streams so commands can be exercised in tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		c.printUsage(c.stderr)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		return c.runServe(rest)
	case "tools":
		return c.runTools(rest)
	case "describe":
		return c.runDescribe(rest)
	case "search":
		return c.runSearch(rest)
	case "render":
		return c.runRender(rest)
	case "cleanup":
		return c.runCleanup(rest)
	case "version", "--version":
		return c.runVersion(rest)
	case "help", "-h", "--help":
		c.printUsage(c.stdout)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", cmd)
		c.printUsage(c.stderr)
		return 1
	}
}

func (c *cli) printUsage(w io.Writer) {
	fmt.Fprint(w, `toolmanim - MCP tool server for rendering Manim animations

Usage:
  toolmanim <command> [flags] [args]

Commands:
  serve                     Serve the tools over MCP (stdio or http)
  tools                     List the tools the server exposes
  describe <tool>           Show documentation for a tool
  search <query>            Search tools by name, description, or tag
  render <file|->           Render a scene script once and print the report
  cleanup <directory>       Delete a directory and print the report
  version                   Show version information
  help                      Show this help

Common flags:
  --config <path>           YAML configuration file (env: TOOLMANIM_CONFIG)

Environment:
  TOOLMANIM_* variables override configuration values; MANIM_PATH sets the
  renderer executable. A .env file in the working directory is loaded first.
`)
}

func (c *cli) newFlagSet(name string) (*flag.FlagSet, *string) {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	configPath := fset.String("config", os.Getenv("TOOLMANIM_CONFIG"), "Path to configuration file")
	return fset, configPath
}

// app is the wired object graph shared by all commands.
type app struct {
	cfg        config.Config
	log        *logging.Logger
	workspace  *workspace.Workspace
	dispatcher *render.Dispatcher
	tools      *toolset.Set
}

func (c *cli) buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, c.stderr)
}

func newApp(cfg config.Config, logOut io.Writer) (*app, error) {
	log := logging.Adapt(logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Out:    logOut,
	}))

	ws, err := workspace.New(workspace.Config{
		BaseDir:        cfg.MediaDir,
		WorkDir:        cfg.Workspace.WorkDir,
		ScriptName:     cfg.Workspace.ScriptName,
		Isolate:        cfg.Workspace.Isolate,
		ConfineCleanup: cfg.Workspace.ConfineCleanup,
		Logger:         log.Component("workspace"),
	})
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	forced, err := render.ParseRenderer(cfg.Render.Renderer)
	if err != nil {
		return nil, err
	}
	disp, err := render.New(render.Config{
		Workspace:      ws,
		Executable:     cfg.Render.Executable,
		Selector:       render.NewSelector(forced, cfg.Render.GPUProbe, nil),
		Runner:         &render.ExecRunner{Timeout: cfg.Render.Timeout, KillGrace: cfg.Render.KillGrace},
		DefaultQuality: render.Quality(cfg.Render.DefaultQuality),
		DisablePreview: !cfg.Render.PreviewEnabled(),
		Logger:         log.Component("render"),
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	set, err := toolset.NewAnimationSet(disp, ws)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, workspace: ws, dispatcher: disp, tools: set}, nil
}

func (c *cli) runServe(args []string) int {
	fset, configPath := c.newFlagSet("serve")
	transport := fset.String("transport", "", "Transport: stdio or http (overrides config)")
	addr := fset.String("addr", "", "Listen address for http (overrides config)")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() > 0 {
		fmt.Fprintln(c.stderr, "Usage: toolmanim serve [--config path] [--transport stdio|http] [--addr host:port]")
		return 1
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}
	if *transport != "" {
		a.cfg.Server.Transport = *transport
	}
	if *addr != "" {
		a.cfg.Server.HTTPAddr = *addr
	}

	log := a.log.With("transport", a.cfg.Server.Transport)
	srv, err := server.New(a.tools, server.Options{
		Name:    a.cfg.Server.Name,
		Version: version,
		Usage:   a.workspace.Usage(),
		Logger:  log.Component("server"),
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "Server error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		"name", a.cfg.Server.Name,
		"media_dir", a.workspace.BaseDir(),
		"executable", a.cfg.Render.Executable,
	)

	switch a.cfg.Server.Transport {
	case config.TransportStdio:
		err = srv.ServeStdio(ctx)
	case config.TransportHTTP:
		err = srv.ListenAndServe(ctx, a.cfg.Server.HTTPAddr)
	default:
		err = fmt.Errorf("unknown transport %q", a.cfg.Server.Transport)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		return 1
	}
	log.Info("server stopped")
	return 0
}

func (c *cli) runTools(args []string) int {
	fset, configPath := c.newFlagSet("tools")
	jsonOut := fset.Bool("json", false, "Output tool definitions as JSON")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}
	tools, err := a.tools.ListTools(context.Background())
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tools); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	for _, tool := range tools {
		fmt.Fprintf(c.stdout, "%-28s %s\n", a.tools.ToolID(tool.Tool.Name), firstLine(tool.Tool.Description))
	}
	return 0
}

func (c *cli) runDescribe(args []string) int {
	fset, configPath := c.newFlagSet("describe")
	brief := fset.Bool("brief", false, "Show the summary only")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: toolmanim describe [--brief] <tool>")
		return 1
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}
	def, ok := a.tools.Lookup(fset.Arg(0))
	if !ok {
		fmt.Fprintf(c.stderr, "Error: %v: %s\n", toolset.ErrToolNotFound, fset.Arg(0))
		return 1
	}
	catalog, err := toolset.NewCatalog(context.Background(), a.tools)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	level := tooldoc.DetailFull
	if *brief {
		level = tooldoc.DetailSummary
	}
	doc, err := catalog.Describe(a.tools.ToolID(def.Name), level)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(c.stdout, "%s (%s)\n", def.Title, a.tools.ToolID(def.Name))
	fmt.Fprintf(c.stdout, "  %s\n", doc.Summary)
	if *brief {
		return 0
	}
	fmt.Fprintf(c.stdout, "\n%s\n", def.Description)
	if doc.Notes != "" {
		fmt.Fprintf(c.stdout, "\nNotes:\n%s\n", doc.Notes)
	}
	return 0
}

func (c *cli) runSearch(args []string) int {
	fset, configPath := c.newFlagSet("search")
	limit := fset.Int("limit", 10, "Maximum number of results")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() < 1 {
		fmt.Fprintln(c.stderr, "Usage: toolmanim search [--limit n] <query>")
		return 1
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}
	catalog, err := toolset.NewCatalog(context.Background(), a.tools)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	results, err := catalog.Search(strings.Join(fset.Args(), " "), *limit)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Fprintln(c.stdout, "No tools found.")
		return 0
	}
	for _, r := range results {
		fmt.Fprintf(c.stdout, "%-28s %s\n", r.ID, r.ShortDescription)
	}
	return 0
}

func (c *cli) runRender(args []string) int {
	fset, configPath := c.newFlagSet("render")
	quality := fset.String("quality", "", "Quality preset (default from config; an explicit empty value adds no flag)")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: toolmanim render [--quality preset] <file|->")
		return 1
	}

	code, err := c.readSource(fset.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := render.Request{Code: code, Quality: string(a.dispatcher.DefaultQuality())}
	if flagSet(fset, "quality") {
		req.Quality = *quality
	}
	outcome := a.dispatcher.Execute(ctx, req)
	fmt.Fprintln(c.stdout, outcome.Report())
	if !outcome.OK() {
		return 1
	}
	return 0
}

func (c *cli) readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (c *cli) runCleanup(args []string) int {
	fset, configPath := c.newFlagSet("cleanup")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: toolmanim cleanup <directory>")
		return 1
	}

	a, err := c.buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error: %v\n", err)
		return 1
	}

	result := a.workspace.Remove(context.Background(), fset.Arg(0))
	fmt.Fprintln(c.stdout, result.Report())
	if result.Status == workspace.CleanupFailed {
		return 1
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (c *cli) runVersion(args []string) int {
	fset := flag.NewFlagSet("version", flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	jsonOut := fset.Bool("json", false, "Output version metadata as JSON")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	info := versionInfo{
		Version:   version,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(c.stdout, string(data))
		return 0
	}
	fmt.Fprintf(c.stdout, "toolmanim %s (commit %s, %s, %s)\n", info.Version, info.GitCommit, info.GoVersion, info.Platform)
	return 0
}

// flagSet reports whether name was given on the command line, so an explicit
// empty value can be told apart from an omitted one.
func flagSet(fset *flag.FlagSet, name string) bool {
	found := false
	fset.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
