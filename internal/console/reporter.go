// Package console renders user-facing output: compile notices, failures
// with their source line, the ready line and the scan spinner.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/yacobolo/lesswatch/internal/compile"
	"github.com/yacobolo/lesswatch/internal/engine"
)

// Reporter prints engine notices. It implements engine.Reporter.
type Reporter struct {
	mu        sync.Mutex
	w         io.Writer
	useColors bool
	quiet     bool
	cwd       string
	spinner   *Spinner
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithColors enables or disables styling.
func WithColors(enabled bool) Option {
	return func(r *Reporter) {
		r.useColors = enabled
	}
}

// WithQuiet suppresses success notices. Failures are always printed.
func WithQuiet(quiet bool) Option {
	return func(r *Reporter) {
		r.quiet = quiet
	}
}

// WithSpinner attaches a spinner that is stopped before the ready line.
func WithSpinner(s *Spinner) Option {
	return func(r *Reporter) {
		r.spinner = s
	}
}

// WithBaseDir sets the directory paths are shown relative to. It defaults
// to the working directory.
func WithBaseDir(dir string) Option {
	return func(r *Reporter) {
		r.cwd = dir
	}
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{w: w}
	if cwd, err := os.Getwd(); err == nil {
		r.cwd = cwd
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ engine.Reporter = (*Reporter)(nil)

// ShouldUseColors determines if colors should be enabled for f.
func ShouldUseColors(force bool, f *os.File) bool {
	// Explicit flag wins
	if force {
		return true
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Check for FORCE_COLOR environment variable (GitHub Actions, etc.)
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	return IsTerminal(f)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Compiled prints the notice for a written primary output.
func (r *Reporter) Compiled(output string) {
	if r.quiet {
		return
	}
	r.printf("%s %s\n", RenderStyle(StyleGreen, "✓ compiled:", r.useColors), r.rel(output))
}

// DependentCompiled prints the notice for a written cascade output.
func (r *Reporter) DependentCompiled(output string) {
	if r.quiet {
		return
	}
	r.printf("  %s %s\n", RenderStyle(StyleGray, "✓ dependent compiled:", r.useColors), r.rel(output))
}

// Failure prints f as "✗ path:line:col: message", followed by the source
// line and a caret when they are known.
func (r *Reporter) Failure(f *compile.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	location := r.rel(f.Path)
	if f.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", location, f.Line, f.Column)
	}
	fmt.Fprintf(r.w, "%s %s %s\n",
		RenderStyle(StyleRed, "✗", r.useColors),
		RenderStyle(StyleCyan, location+":", r.useColors),
		f.Message)

	if f.Source != "" && f.Line > 0 {
		fmt.Fprintf(r.w, "\t%s\n", f.Source)
		caret := buildCaretIndicator(f.Source, f.Column)
		fmt.Fprintf(r.w, "\t%s\n", RenderStyle(StyleYellow, caret, r.useColors))
	}
}

// Ready stops the spinner and prints the ready line.
func (r *Reporter) Ready(initCompile bool) {
	if r.spinner != nil {
		r.spinner.Stop()
	}
	if r.quiet {
		return
	}
	msg := "scan complete"
	if initCompile {
		msg = "initial compile complete"
	}
	r.printf("%s\n", RenderStyle(StyleGreen, "✓ "+msg, r.useColors))
}

// Summary prints the session counters.
func (r *Reporter) Summary(s engine.Stats) {
	if r.quiet && s.Failed == 0 {
		return
	}
	r.printf("\n%s, %s, %s\n",
		pluralizeCount(s.Compiled, "file compiled", "files compiled"),
		pluralizeCount(s.Written, "output written", "outputs written"),
		pluralizeCount(s.Failed, "failure", "failures"))
}

func (r *Reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}

// rel returns path relative to the base directory when it is inside it.
func (r *Reporter) rel(path string) string {
	if r.cwd == "" {
		return path
	}
	rel, err := filepath.Rel(r.cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// buildCaretIndicator creates the "^" indicator aligned with the column.
// Tabs in the prefix are kept so the caret lines up under tab-indented source.
func buildCaretIndicator(sourceLine string, column int) string {
	if column <= 0 {
		return "^"
	}

	prefixLen := column - 1
	if prefixLen > len(sourceLine) {
		prefixLen = len(sourceLine)
	}

	var padding strings.Builder
	for _, ch := range sourceLine[:prefixLen] {
		if ch == '\t' {
			padding.WriteRune('\t')
		} else {
			padding.WriteRune(' ')
		}
	}
	return padding.String() + "^"
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
