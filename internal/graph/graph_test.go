package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrGet(t *testing.T) {
	g := New()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.less")

	e := g.RecordOrGet(a)
	require.NotNil(t, e)
	assert.Equal(t, a, e.Path)
	assert.Empty(t, e.Imports())
	assert.Empty(t, e.Dependents())

	// Same entity for an unnormalized spelling of the same path
	again := g.RecordOrGet(filepath.Join(dir, "sub", "..", "a.less"))
	assert.Same(t, e, again)
	assert.Equal(t, 1, g.Len())
}

func TestRecordImports(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.less")
	b := filepath.Join(dir, "b.less")
	c := filepath.Join(dir, "partials", "c.less")

	tests := []struct {
		name           string
		record         func(g *Graph)
		wantImportsA   []string
		wantDependents map[string][]string
	}{
		{
			name: "single import creates target entry",
			record: func(g *Graph) {
				g.RecordImports(a, []string{b})
			},
			wantImportsA: []string{b},
			wantDependents: map[string][]string{
				b: {a},
				a: nil,
			},
		},
		{
			name: "target recorded before importer",
			record: func(g *Graph) {
				g.RecordOrGet(b)
				g.RecordImports(a, []string{b, c})
			},
			wantImportsA: []string{b, c},
			wantDependents: map[string][]string{
				b: {a},
				c: {a},
			},
		},
		{
			name: "repeated compiles do not duplicate",
			record: func(g *Graph) {
				g.RecordImports(a, []string{b})
				g.RecordImports(a, []string{b})
				g.RecordImports(a, []string{b, c})
			},
			wantImportsA: []string{b, c},
			wantDependents: map[string][]string{
				b: {a},
				c: {a},
			},
		},
		{
			name: "two importers of one partial",
			record: func(g *Graph) {
				g.RecordImports(a, []string{c})
				g.RecordImports(b, []string{c})
			},
			wantImportsA: []string{c},
			wantDependents: map[string][]string{
				c: {a, b},
			},
		},
		{
			name: "self import ignored",
			record: func(g *Graph) {
				g.RecordImports(a, []string{a})
			},
			wantImportsA: nil,
			wantDependents: map[string][]string{
				a: nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			tt.record(g)

			assert.Equal(t, tt.wantImportsA, g.ImportsOf(a))
			for path, want := range tt.wantDependents {
				assert.Equal(t, want, g.DependentsOf(path), "dependents of %s", filepath.Base(path))
			}
		})
	}
}

func TestDependentsOfUnknownPath(t *testing.T) {
	g := New()
	assert.Nil(t, g.DependentsOf("/nowhere/x.less"))
	assert.False(t, g.Has("/nowhere/x.less"))
	assert.Equal(t, 0, g.Len())
}

func TestNormalize(t *testing.T) {
	abs := Normalize("styles/a.less")
	assert.True(t, filepath.IsAbs(abs))
	assert.Equal(t, filepath.Clean(abs), abs)
}
