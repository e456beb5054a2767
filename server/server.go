package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolmanim/toolset"
)

// Defaults applied by New.
const (
	DefaultName    = "ManimServer"
	DefaultVersion = "dev"

	shutdownTimeout = 5 * time.Second
)

// ErrToolSetRequired is returned by New when no tool set is given.
var ErrToolSetRequired = errors.New("server: tool set is required")

// Logger is the logging interface used by the server.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UsageReporter exposes per-directory render counts for the health endpoint.
// *workspace.Usage implements it.
type UsageReporter interface {
	Dirs() []string
	Count(dir string) int
}

// Options configures a Server.
type Options struct {
	// Name is the implementation name reported to clients. Default: ManimServer.
	Name    string
	Version string

	// Instructions is optional guidance sent during initialization.
	Instructions string

	// Usage, when set, adds successful render counts to /healthz.
	Usage UsageReporter

	Logger Logger
}

// Server exposes a tool set over MCP.
//
// Contract:
// - Concurrency: safe for concurrent use; sessions share the tool set.
// - Errors: tool failures are reported as error results, never as protocol
// errors.
type Server struct {
	mcp    *mcp.Server
	set    *toolset.Set
	usage  UsageReporter
	logger Logger
}

// New builds a Server advertising every tool in set.
func New(set *toolset.Set, opts Options) (*Server, error) {
	if set == nil {
		return nil, ErrToolSetRequired
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}

	srv := mcp.NewServer(
		&mcp.Implementation{Name: opts.Name, Version: opts.Version},
		&mcp.ServerOptions{Instructions: opts.Instructions},
	)

	s := &Server{mcp: srv, set: set, usage: opts.Usage, logger: opts.Logger}

	tools, err := set.ListTools(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	for _, tool := range tools {
		mt := tool.Tool
		srv.AddTool(&mt, s.handler(mt.Name))
	}
	return s, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("%w: arguments must be an object: %v", toolset.ErrInvalidArgument, err)), nil
			}
		}

		out, err := s.set.Execute(ctx, name, args)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("tool call rejected", "tool", name, "error", err)
			}
			return errorResult(err), nil
		}

		text, err := resultText(out)
		if err != nil {
			return errorResult(err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func resultText(out any) (string, error) {
	switch v := out.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}
		return string(data), nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// ServeStdio serves a single session over standard input and output until
// the client disconnects or ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.info("serving over stdio", "tools", len(s.set.Names()))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP routes: GET /healthz and the streamable MCP
// endpoint at /mcp.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)
	return r
}

// ListenAndServe serves Handler on addr until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.info("serving over http", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{
		"status": "ok",
		"tools":  s.set.Names(),
	}
	if s.usage != nil {
		renders := make(map[string]int)
		for _, dir := range s.usage.Dirs() {
			renders[dir] = s.usage.Count(dir)
		}
		body["renders"] = renders
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
