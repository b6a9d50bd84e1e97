// Package compile wraps a stylesheet compiler behind a single call that
// reads a source file and returns either generated output or a located
// failure.
package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yacobolo/lesswatch/internal/graph"
)

// Sentinel errors for the failure kinds, usable with errors.Is on Failure.Err.
var (
	ErrRead    = errors.New("read error")
	ErrCompile = errors.New("compile error")
)

// Kind classifies a Failure.
type Kind int

const (
	// KindCompile is a syntax or semantic problem reported by the compiler.
	KindCompile Kind = iota
	// KindRead means the source file could not be read.
	KindRead
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindCompile:
		return "compile"
	default:
		return "unknown"
	}
}

// Options are the dialect settings handed to the compiler. They are fixed
// for a session, see SessionOptions.
type Options struct {
	Math              bool // evaluate numeric expressions everywhere
	StrictUnits       bool // reject arithmetic between incompatible units
	IECompat          bool // legacy compatibility mode
	JavascriptEnabled bool // inline script evaluation
	Compress          bool // minify output
}

// SessionOptions returns the dialect used for every compile in a session.
func SessionOptions() Options {
	return Options{
		Math:              true,
		StrictUnits:       true,
		IECompat:          true,
		JavascriptEnabled: true,
		Compress:          false,
	}
}

// Request is what a Compiler receives.
type Request struct {
	Filename string   // absolute path of the source
	Source   string   // full text of the source
	Paths    []string // import search paths, in order
	Options  Options
}

// Result is what a Compiler returns on success.
type Result struct {
	CSS     string
	Imports []string // files transitively imported, absolute or relative to the source dir
}

// LocatedError is implemented by compiler errors that carry a position.
type LocatedError interface {
	error
	Location() (filename string, line, column int)
}

// Extractor is optionally implemented by LocatedError values that can return
// the offending source line.
type Extractor interface {
	SourceLine() string
}

// Compiler turns stylesheet source into generated text.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Result, error)
}

// Failure describes a compile that did not produce output.
type Failure struct {
	Kind    Kind
	Path    string // file the problem was reported in
	Line    int    // 1-based, 0 when unknown
	Column  int    // 1-based, 0 when unknown
	Message string
	Source  string // offending source line, when known
}

// Err returns the failure as an error wrapping ErrRead or ErrCompile.
func (f *Failure) Err() error {
	if f.Kind == KindRead {
		return fmt.Errorf("%w: %s: %s", ErrRead, f.Path, f.Message)
	}
	return fmt.Errorf("%w: %s", ErrCompile, f.Location())
}

// Location formats the failure as path:line:column, dropping the
// position when it is unknown.
func (f *Failure) Location() string {
	if f.Line <= 0 {
		return f.Path
	}
	return fmt.Sprintf("%s:%d:%d", f.Path, f.Line, f.Column)
}

// Outcome is the result of one compile invocation: exactly one of Failure
// or the success fields is meaningful.
type Outcome struct {
	Path    string
	CSS     string
	Imports []string // normalized absolute paths
	Failure *Failure
}

// OK reports whether the compile succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Adapter reads sources and runs them through a Compiler.
type Adapter struct {
	compiler Compiler
	options  Options
	readFile func(string) ([]byte, error)
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithOptions overrides the session dialect options.
func WithOptions(opts Options) AdapterOption {
	return func(a *Adapter) {
		a.options = opts
	}
}

// WithReadFile replaces the file-read primitive.
func WithReadFile(fn func(string) ([]byte, error)) AdapterOption {
	return func(a *Adapter) {
		a.readFile = fn
	}
}

// NewAdapter creates an Adapter around compiler.
func NewAdapter(compiler Compiler, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		compiler: compiler,
		options:  SessionOptions(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compile reads path and compiles it with the file's directory as the only
// search path. It never returns an error: problems are carried by
// Outcome.Failure.
func (a *Adapter) Compile(ctx context.Context, path string) Outcome {
	path = graph.Normalize(path)
	out := Outcome{Path: path}

	// #nosec G304 - path comes from the watched tree
	content, err := a.readFile(path)
	if err != nil {
		out.Failure = &Failure{Kind: KindRead, Path: path, Message: err.Error()}
		return out
	}

	dir := filepath.Dir(path)
	res, err := a.compiler.Compile(ctx, Request{
		Filename: path,
		Source:   string(content),
		Paths:    []string{dir},
		Options:  a.options,
	})
	if err != nil {
		out.Failure = toFailure(path, err)
		return out
	}

	out.CSS = res.CSS
	out.Imports = resolveImports(dir, res.Imports)
	return out
}

// resolveImports makes every import absolute against dir and normalizes it.
func resolveImports(dir string, imports []string) []string {
	if len(imports) == 0 {
		return nil
	}
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(dir, imp)
		}
		out = append(out, graph.Normalize(imp))
	}
	return out
}

func toFailure(path string, err error) *Failure {
	f := &Failure{Kind: KindCompile, Path: path, Message: err.Error()}

	var located LocatedError
	if errors.As(err, &located) {
		filename, line, column := located.Location()
		if filename != "" {
			f.Path = filename
		}
		f.Line = line
		f.Column = column
		f.Message = messageOf(err)
	}

	var extractor Extractor
	if errors.As(err, &extractor) {
		f.Source = extractor.SourceLine()
	}
	return f
}

// messageOf prefers a bare message over the error string, which usually
// repeats the location.
func messageOf(err error) string {
	type messager interface{ Msg() string }
	var m messager
	if errors.As(err, &m) {
		return m.Msg()
	}
	return err.Error()
}
