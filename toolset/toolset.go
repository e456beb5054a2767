package toolset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Common errors for tool set operations.
var (
	ErrToolNotFound    = errors.New("tool not found")
	ErrToolExists      = errors.New("tool already registered")
	ErrInvalidTool     = errors.New("invalid tool definition")
	ErrInvalidArgument = errors.New("invalid argument")
)

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolDef defines a tool with its handler.
type ToolDef struct {
	Name string

	// Title defaults to Name in title case with underscores as spaces.
	Title string

	Description string
	InputSchema map[string]any
	Annotations *mcp.ToolAnnotations
	Tags        []string

	// Summary and Notes feed the documentation catalog.
	Summary string
	Notes   string

	Handler HandlerFunc
}

// Set is a namespace of locally handled tools.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: unknown tools return ErrToolNotFound; handlers own their errors.
type Set struct {
	namespace string
	mu        sync.RWMutex
	defs      map[string]ToolDef
}

// New creates an empty tool set under namespace.
func New(namespace string) *Set {
	return &Set{
		namespace: namespace,
		defs:      make(map[string]ToolDef),
	}
}

// ToolID returns the canonical namespace:name ID of a tool.
func (s *Set) ToolID(name string) string {
	if s.namespace == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", s.namespace, name)
}

// Register adds a tool.
func (s *Set) Register(def ToolDef) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, def.Name)
	}
	if def.Title == "" {
		def.Title = Title(def.Name)
	}
	if def.InputSchema == nil {
		def.InputSchema = map[string]any{"type": "object"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolExists, def.Name)
	}
	s.defs[def.Name] = def
	return nil
}

// Lookup returns the definition of a tool by name or ID.
func (s *Set) Lookup(id string) (ToolDef, bool) {
	name, err := s.resolve(id)
	if err != nil {
		return ToolDef{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[name]
	return def, ok
}

// Names returns the registered tool names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.defs))
	for name := range s.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools returns the set's tools sorted by name.
func (s *Set) ListTools(ctx context.Context) ([]model.Tool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Tool, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, model.Tool{
			Tool: mcp.Tool{
				Name:        def.Name,
				Title:       def.Title,
				Description: def.Description,
				InputSchema: def.InputSchema,
				Annotations: def.Annotations,
			},
			Namespace: s.namespace,
			Tags:      model.NormalizeTags(def.Tags),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool.Name < out[j].Tool.Name })
	return out, nil
}

// Execute invokes a tool by bare name or namespace:name ID.
func (s *Set) Execute(ctx context.Context, id string, args map[string]any) (any, error) {
	def, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	if args == nil {
		args = map[string]any{}
	}
	return def.Handler(ctx, args)
}

// resolve maps a bare name or ID to a tool name in this set.
func (s *Set) resolve(id string) (string, error) {
	if !strings.Contains(id, ":") {
		return id, nil
	}
	namespace, name, err := model.ParseToolID(id)
	if err != nil {
		return "", err
	}
	if namespace != s.namespace {
		return "", ErrToolNotFound
	}
	return name, nil
}

// Title turns a snake_case tool name into a display title.
func Title(name string) string {
	// Casers keep state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
