// Package graph keeps the import relationships between stylesheet sources.
//
// The graph is a live reverse index: when a file's compile result reports
// that it imports another file, the importer is added to the target's
// dependents immediately. Entries are created lazily and live for the whole
// watch session.
package graph

import (
	"path/filepath"
	"sort"
)

// Normalize turns path into the key used throughout the graph: absolute and
// cleaned. Relative paths are resolved against the working directory.
func Normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Entry is the graph node for a single source path.
type Entry struct {
	Path string

	// imports keeps first-seen order; importSet makes appends idempotent.
	imports   []string
	importSet map[string]struct{}

	dependents map[string]struct{}
}

// Imports returns the files this entry directly references, in the order
// they were first recorded.
func (e *Entry) Imports() []string {
	out := make([]string, len(e.imports))
	copy(out, e.imports)
	return out
}

// Dependents returns the files that import this entry, sorted.
func (e *Entry) Dependents() []string {
	return sortedKeys(e.dependents)
}

// Graph maps normalized source paths to their entries.
// It is not safe for concurrent use; the engine owns it from a single goroutine.
type Graph struct {
	entries map[string]*Entry
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{entries: make(map[string]*Entry)}
}

// RecordOrGet returns the entry for path, creating an empty one if absent.
func (g *Graph) RecordOrGet(path string) *Entry {
	key := Normalize(path)
	if e, ok := g.entries[key]; ok {
		return e
	}
	e := &Entry{
		Path:       key,
		importSet:  make(map[string]struct{}),
		dependents: make(map[string]struct{}),
	}
	g.entries[key] = e
	return e
}

// RecordImports adds every target in imports to path's import list and adds
// path to each target's dependents. Repeated calls with the same targets do
// not grow either side.
func (g *Graph) RecordImports(path string, imports []string) {
	entry := g.RecordOrGet(path)
	for _, target := range imports {
		key := Normalize(target)
		if key == entry.Path {
			continue
		}
		if _, seen := entry.importSet[key]; !seen {
			entry.importSet[key] = struct{}{}
			entry.imports = append(entry.imports, key)
		}
		g.RecordOrGet(key).dependents[entry.Path] = struct{}{}
	}
}

// DependentsOf returns the direct dependents of path, or nil when path has
// never been seen.
func (g *Graph) DependentsOf(path string) []string {
	e, ok := g.entries[Normalize(path)]
	if !ok || len(e.dependents) == 0 {
		return nil
	}
	return e.Dependents()
}

// ImportsOf returns the recorded imports of path, or nil when path has never
// been seen.
func (g *Graph) ImportsOf(path string) []string {
	e, ok := g.entries[Normalize(path)]
	if !ok || len(e.imports) == 0 {
		return nil
	}
	return e.Imports()
}

// Has reports whether path has an entry.
func (g *Graph) Has(path string) bool {
	_, ok := g.entries[Normalize(path)]
	return ok
}

// Len returns the number of entries.
func (g *Graph) Len() int {
	return len(g.entries)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
