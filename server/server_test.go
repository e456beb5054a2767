package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolmanim/render"
	"github.com/jonwraymond/toolmanim/toolset"
	"github.com/jonwraymond/toolmanim/workspace"
)

type stubRenderer struct {
	got []render.Request
}

func (s *stubRenderer) DefaultQuality() render.Quality { return render.QualityMedium }

func (s *stubRenderer) Execute(_ context.Context, req render.Request) render.Outcome {
	s.got = append(s.got, req)
	return render.Outcome{
		Status:   render.StatusSucceeded,
		Renderer: render.RendererCairo,
		Quality:  req.Quality,
		Dir:      "/media/manim_tmp",
		Command:  render.Command{Name: "manim", Args: []string{"--renderer", "cairo", "-qm", "-p", "/media/manim_tmp/scene.py"}},
		Process:  render.ProcessResult{Stdout: "File ready"},
	}
}

type mockLogger struct {
	warns []string
}

func (m *mockLogger) Info(string, ...any)       {}
func (m *mockLogger) Warn(msg string, _ ...any) { m.warns = append(m.warns, msg) }
func (m *mockLogger) Error(string, ...any)      {}

func newTestServer(t *testing.T) (*Server, *stubRenderer, *workspace.Workspace, *mockLogger) {
	t.Helper()
	ws, err := workspace.New(workspace.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	r := &stubRenderer{}
	set, err := toolset.NewAnimationSet(r, ws)
	require.NoError(t, err)
	log := &mockLogger{}
	srv, err := New(set, Options{Logger: log})
	require.NoError(t, err)
	return srv, r, ws, log
}

func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestNewRequiresToolSet(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrToolSetRequired)
}

func TestListTools(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	cs := connect(t, srv)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"execute_animation_code", "cleanup_directory"}, names)
}

func TestCallExecuteAnimationCode(t *testing.T) {
	srv, r, _, _ := newTestServer(t)
	cs := connect(t, srv)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "execute_animation_code",
		Arguments: map[string]any{"code": "from manim import *", "quality": "low_quality"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := textOf(t, res)
	assert.True(t, strings.HasPrefix(text, "Execution successful.\nRenderer used: cairo\n"), text)
	assert.True(t, strings.HasSuffix(text, "Output:\nFile ready"), text)

	require.Len(t, r.got, 1)
	assert.Equal(t, "low_quality", r.got[0].Quality)
}

func TestCallExecuteMissingCode(t *testing.T) {
	srv, r, _, log := newTestServer(t)
	cs := connect(t, srv)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "execute_animation_code",
		Arguments: map[string]any{"quality": "low_quality"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "code")
	assert.Empty(t, r.got)
	assert.Equal(t, []string{"tool call rejected"}, log.warns)
}

func TestCallCleanupDirectory(t *testing.T) {
	srv, _, ws, _ := newTestServer(t)
	cs := connect(t, srv)

	dir := filepath.Join(ws.BaseDir(), "scratch")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	call := func() string {
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "cleanup_directory",
			Arguments: map[string]any{"directory": dir},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		return textOf(t, res)
	}

	assert.Equal(t, "Cleanup successful for directory: "+dir, call())
	assert.NoDirExists(t, dir)
	assert.Equal(t, "Directory not found: "+dir, call())
}

func TestResultText(t *testing.T) {
	got, err := resultText("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = resultText(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = resultText(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, got)

	_, err = resultText(make(chan int))
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string   `json:"status"`
		Tools  []string `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"cleanup_directory", "execute_animation_code"}, body.Tools)
	assert.NotContains(t, rec.Body.String(), `"renders"`)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

func TestHealthzReportsRenders(t *testing.T) {
	ws, err := workspace.New(workspace.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	set, err := toolset.NewAnimationSet(&stubRenderer{}, ws)
	require.NoError(t, err)
	srv, err := New(set, Options{Usage: ws.Usage()})
	require.NoError(t, err)

	ws.MarkUsed(ws.WorkDir())
	ws.MarkUsed(ws.WorkDir())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Renders map[string]int `json:"renders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{ws.WorkDir(): 2}, body.Renders)
}
