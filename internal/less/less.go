// Package less is a small LESS compiler built on the tdewolff css lexer.
//
// It covers the parts of the language a watch-and-rebuild workflow leans on:
// @import inlining with search paths, variables and interpolation, arithmetic
// with unit checking, and // comments. Nested rules, parent selectors,
// mixins and guards are reported as located errors. The builtin function
// library is not implemented and function calls pass through.
package less

import (
	"context"
	"os"
	"strings"

	"github.com/yacobolo/lesswatch/internal/compile"
)

// options is the subset of compile.Options this package acts on.
type options struct {
	math        bool
	strictUnits bool
	javascript  bool
	compress    bool
}

func fromCompileOptions(o compile.Options) options {
	return options{
		math:        o.Math,
		strictUnits: o.StrictUnits,
		javascript:  o.JavascriptEnabled,
		compress:    o.Compress,
	}
}

// Compiler implements compile.Compiler.
type Compiler struct {
	readFile func(string) ([]byte, error)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithReadFile replaces the primitive used to load imported files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(c *Compiler) {
		c.readFile = fn
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{readFile: os.ReadFile}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ compile.Compiler = (*Compiler)(nil)

// Compile renders req.Source. The returned imports are the absolute paths of
// every file inlined into the output, in first-seen order.
func (c *Compiler) Compile(ctx context.Context, req compile.Request) (compile.Result, error) {
	if err := ctx.Err(); err != nil {
		return compile.Result{}, err
	}
	opts := fromCompileOptions(req.Options)

	root := newSource(req.Filename, req.Source)
	tokens, err := root.tokenize(opts)
	if err != nil {
		return compile.Result{}, err
	}

	im := newImporter(ctx, c, req.Paths, opts)
	im.seen[req.Filename] = true
	expanded, err := im.expand(root, tokens)
	if err != nil {
		return compile.Result{}, err
	}

	e := newEmitter(expanded, opts)
	css, err := e.render()
	if err != nil {
		return compile.Result{}, err
	}

	return compile.Result{CSS: css, Imports: im.imports}, nil
}

// CompileString is a convenience wrapper used by tests and tooling.
func (c *Compiler) CompileString(filename, src string) (string, error) {
	res, err := c.Compile(context.Background(), compile.Request{
		Filename: filename,
		Source:   src,
		Options:  compile.SessionOptions(),
	})
	return res.CSS, err
}

// knownAtRules are CSS at-rules that must not be read as variable references.
var knownAtRules = map[string]bool{
	"charset":             true,
	"container":           true,
	"counter-style":       true,
	"document":            true,
	"font-face":           true,
	"font-feature-values": true,
	"font-palette-values": true,
	"import":              true,
	"keyframes":           true,
	"layer":               true,
	"media":               true,
	"namespace":           true,
	"page":                true,
	"plugin":              true,
	"property":            true,
	"scope":               true,
	"starting-style":      true,
	"supports":            true,
	"viewport":            true,
}

func isAtRule(keyword string) bool {
	name := strings.ToLower(strings.TrimPrefix(keyword, "@"))
	if knownAtRules[name] {
		return true
	}
	// Vendor-prefixed forms, e.g. @-webkit-keyframes
	if strings.HasPrefix(name, "-") {
		if i := strings.Index(name[1:], "-"); i >= 0 {
			return knownAtRules[name[i+2:]]
		}
	}
	return false
}
