// Package lesswatch watches a directory of LESS sources and keeps compiled
// stylesheets next to them up to date.
//
// A session starts with a scan of every existing source. The scan records
// which files import which, and by default writes nothing. Once the scan is
// complete, every added or changed source is compiled and written, and a
// change to an imported file recompiles every file that imports it.
//
//	cfg := lesswatch.DefaultConfig()
//	cfg.Dir = "miniprogram"
//	stats, err := lesswatch.Run(ctx, cfg)
//
// # CLI Tool
//
// Install with:
//
//	go install github.com/yacobolo/lesswatch/cmd/lesswatch@latest
package lesswatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yacobolo/lesswatch/internal/compile"
	"github.com/yacobolo/lesswatch/internal/console"
	"github.com/yacobolo/lesswatch/internal/engine"
	"github.com/yacobolo/lesswatch/internal/less"
	"github.com/yacobolo/lesswatch/internal/watch"
)

// SourceExt is the extension of watched sources.
const SourceExt = "less"

// Config is a watch session.
type Config struct {
	Dir         string   // root directory
	Watch       bool     // keep watching after the initial scan
	InitCompile bool     // write outputs during the initial scan
	OutputExt   string   // extension of generated files, leading dot optional
	Include     string   // doublestar pattern, relative to Dir
	Ignore      []string // gitignore-syntax patterns
	Gitignore   bool     // also honor Dir/.gitignore
	Quiet       bool     // suppress success notices
	Color       bool     // force colors
}

// DefaultConfig returns the defaults used by the CLI. Dir is left empty.
func DefaultConfig() Config {
	return Config{
		Watch:     true,
		OutputExt: engine.DefaultOutputExt,
		Include:   "**/*." + SourceExt,
		Ignore:    []string{"node_modules/", ".git/"},
		Gitignore: true,
	}
}

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the preconditions of a session.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: no directory given", ErrInvalidConfig)
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidConfig, c.Dir)
	}

	ext := strings.TrimPrefix(c.OutputExt, ".")
	if ext == "" {
		return fmt.Errorf("%w: output extension is empty", ErrInvalidConfig)
	}
	if strings.EqualFold(ext, SourceExt) {
		return fmt.Errorf("%w: output extension %q would overwrite sources", ErrInvalidConfig, c.OutputExt)
	}

	if !doublestar.ValidatePattern(c.Include) {
		return fmt.Errorf("%w: invalid include pattern %q", ErrInvalidConfig, c.Include)
	}
	return nil
}

type runOptions struct {
	logger   *slog.Logger
	stdout   io.Writer
	stderr   *os.File
	compiler compile.Compiler
}

// Option configures Run.
type Option func(*runOptions)

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// WithOutput sets where notices are printed. It defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *runOptions) {
		o.stdout = w
	}
}

// WithCompiler replaces the builtin LESS compiler.
func WithCompiler(c compile.Compiler) Option {
	return func(o *runOptions) {
		o.compiler = c
	}
}

// Run validates cfg and runs a session until the scan is done (Watch false)
// or ctx is cancelled. Cancellation is a normal shutdown and returns a nil
// error.
func Run(ctx context.Context, cfg Config, opts ...Option) (engine.Stats, error) {
	o := runOptions{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		compiler: less.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return engine.Stats{}, err
	}

	w, err := watch.New(watch.Config{
		Root:      cfg.Dir,
		Include:   cfg.Include,
		Ignore:    cfg.Ignore,
		Gitignore: cfg.Gitignore,
		Watch:     cfg.Watch,
	}, watch.WithLogger(o.logger))
	if err != nil {
		return engine.Stats{}, err
	}

	useColors := cfg.Color
	if f, ok := o.stdout.(*os.File); ok {
		useColors = console.ShouldUseColors(cfg.Color, f)
	}
	reporterOpts := []console.Option{
		console.WithColors(useColors),
		console.WithQuiet(cfg.Quiet),
	}

	var spinner *console.Spinner
	if !cfg.InitCompile && console.IsTerminal(o.stderr) {
		spinner = console.NewSpinner(o.stderr, "scanning "+w.Root(), console.ShouldUseColors(cfg.Color, o.stderr))
		reporterOpts = append(reporterOpts, console.WithSpinner(spinner))
	}
	reporter := console.NewReporter(o.stdout, reporterOpts...)

	eng := engine.New(compile.NewAdapter(o.compiler),
		engine.WithInitCompile(cfg.InitCompile),
		engine.WithOutputExt(cfg.OutputExt),
		engine.WithReporter(reporter),
		engine.WithLogger(o.logger),
	)

	events, err := w.Start(ctx)
	if err != nil {
		return engine.Stats{}, err
	}
	o.logger.Debug("session started", "root", w.Root(), "watch", cfg.Watch, "init", cfg.InitCompile)

	if spinner != nil {
		spinner.Start()
		defer spinner.Stop()
	}

	err = eng.Run(ctx, events)
	stats := eng.Stats()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil && !cfg.Watch {
		reporter.Summary(stats)
	}
	return stats, err
}
