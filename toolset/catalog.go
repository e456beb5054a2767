package toolset

import (
	"context"
	"fmt"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
)

// Catalog indexes a Set's tools for search and documentation lookup.
type Catalog struct {
	index index.Index
	docs  tooldoc.Store
}

// NewCatalog registers every tool of set, with its summary and notes, in a
// fresh in-memory index and doc store.
func NewCatalog(ctx context.Context, set *Set) (*Catalog, error) {
	idx := index.NewInMemoryIndex()
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})

	tools, err := set.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for _, tool := range tools {
		id := set.ToolID(tool.Tool.Name)
		if err := idx.RegisterTool(tool, model.NewLocalBackend(tool.Tool.Name)); err != nil {
			return nil, fmt.Errorf("index %s: %w", id, err)
		}
		def, _ := set.Lookup(tool.Tool.Name)
		if err := docs.RegisterDoc(id, tooldoc.DocEntry{Summary: def.Summary, Notes: def.Notes}); err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
	}

	return &Catalog{index: idx, docs: docs}, nil
}

// Search finds tools matching query.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	return c.index.Search(query, limit)
}

// Describe returns documentation for a tool ID at the given detail level.
func (c *Catalog) Describe(id string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	return c.docs.DescribeTool(id, level)
}
