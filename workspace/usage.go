package workspace

import (
	"sort"
	"sync"
)

// Usage counts successful renders per working directory. Nothing in the
// render path reads it back; it feeds logs and the health endpoint.
type Usage struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewUsage creates an empty registry.
func NewUsage() *Usage {
	return &Usage{counts: make(map[string]int)}
}

// Mark records one successful render in dir and returns the new count.
func (u *Usage) Mark(dir string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[dir]++
	return u.counts[dir]
}

// Count returns the number of successful renders recorded for dir.
func (u *Usage) Count(dir string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[dir]
}

// Dirs returns every recorded directory, sorted.
func (u *Usage) Dirs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.counts))
	for dir := range u.counts {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}
