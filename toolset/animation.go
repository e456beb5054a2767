package toolset

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolmanim/render"
	"github.com/jonwraymond/toolmanim/workspace"
)

// Namespace and tool names of the animation tool set.
const (
	Namespace   = "manim"
	ToolExecute = "execute_animation_code"
	ToolCleanup = "cleanup_directory"
)

// Renderer runs animation code. *render.Dispatcher implements it.
type Renderer interface {
	Execute(ctx context.Context, req render.Request) render.Outcome

	// DefaultQuality is used when the caller omits quality.
	DefaultQuality() render.Quality
}

// Cleaner removes output directories. *workspace.Workspace implements it.
type Cleaner interface {
	Remove(ctx context.Context, dir string) workspace.CleanupResult
}

var (
	_ Renderer = (*render.Dispatcher)(nil)
	_ Cleaner  = (*workspace.Workspace)(nil)
)

// NewAnimationSet registers the execute and cleanup tools over r and c.
// Both handlers return the report text; only argument errors are returned
// as errors.
func NewAnimationSet(r Renderer, c Cleaner) (*Set, error) {
	if r == nil || c == nil {
		return nil, errors.New("toolset: renderer and cleaner are required")
	}

	set := New(Namespace)
	destructive := true

	defs := []ToolDef{
		{
			Name: ToolExecute,
			Description: "Execute Manim animation code and generate a video.\n\n" +
				"code must be complete Python source with import statements and at least one Scene " +
				"class. A surrounding markdown code fence is stripped.\n\n" +
				"quality is one of low_quality (-ql, fast, low res), medium_quality (-qm, 720p, default), " +
				"high_quality (-qh, 1080p), production_quality (-qk, 2K/4K, slow). " +
				"Any other value adds no quality flag and the renderer's default applies.\n\n" +
				"Returns a success message with the output directory, or the renderer's error output.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{
						"type":        "string",
						"description": "Python source containing Manim Scene class(es)",
					},
					"quality": map[string]any{
						"type":        "string",
						"description": "Rendering quality preset",
						"default":     string(r.DefaultQuality()),
						"examples":    qualityNames(),
					},
				},
				"required": []any{"code"},
			},
			Tags:    []string{"manim", "animation", "render", "video"},
			Summary: "Render Manim scene code to video with the external manim CLI",
			Notes: "The script is written to a fixed working directory under the media directory and " +
				"overwritten on every call. The renderer backend is opengl when nvidia-smi is on the " +
				"search path, cairo otherwise.",
			Handler: executeHandler(r),
		},
		{
			Name: ToolCleanup,
			Description: "Clean up a Manim output directory and remove all generated files.\n\n" +
				"directory is the absolute path to remove, typically the directory reported by " +
				ToolExecute + ". This permanently deletes everything below it.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"directory": map[string]any{
						"type":        "string",
						"description": "Absolute path of the directory to delete",
					},
				},
				"required": []any{"directory"},
			},
			Annotations: &mcp.ToolAnnotations{
				DestructiveHint: &destructive,
				IdempotentHint:  true,
			},
			Tags:    []string{"manim", "cleanup", "filesystem"},
			Summary: "Recursively delete an output directory",
			Notes:   "A missing directory is reported as not found, not as an error.",
			Handler: cleanupHandler(c),
		},
	}

	for _, def := range defs {
		if err := set.Register(def); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func executeHandler(r Renderer) HandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		code, err := stringArg(args, "code", true, "")
		if err != nil {
			return nil, err
		}
		// Only an omitted quality gets the default; "" is passed on as a label.
		quality, err := stringArg(args, "quality", false, string(r.DefaultQuality()))
		if err != nil {
			return nil, err
		}
		return r.Execute(ctx, render.Request{Code: code, Quality: quality}).Report(), nil
	}
}

func cleanupHandler(c Cleaner) HandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		dir, err := stringArg(args, "directory", true, "")
		if err != nil {
			return nil, err
		}
		return c.Remove(ctx, dir).Report(), nil
	}
}

func qualityNames() []any {
	qs := render.Qualities()
	out := make([]any, len(qs))
	for i, q := range qs {
		out[i] = string(q)
	}
	return out
}
