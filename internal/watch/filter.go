package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Filter decides which paths under a root are watched.
//
// Two layers:
// 1. Ignore check: gitignore-syntax patterns, plus <root>/.gitignore when enabled
// 2. Include check: a doublestar pattern matched against the root-relative path
type Filter struct {
	root    string
	include string
	ignore  *ignore.GitIgnore
}

// NewFilter builds a Filter for root. A missing .gitignore is not an error.
func NewFilter(root, include string, ignoreLines []string, useGitignore bool) (*Filter, error) {
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("invalid include pattern %q", include)
	}

	gi := ignore.CompileIgnoreLines(ignoreLines...)
	if useGitignore {
		path := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(path); err == nil {
			loaded, err := ignore.CompileIgnoreFileAndLines(path, ignoreLines...)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
			gi = loaded
		}
	}

	return &Filter{root: root, include: include, ignore: gi}, nil
}

// rel returns path relative to the root in slash form, or false when path
// is outside the root.
func (f *Filter) rel(path string) (string, bool) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// SkipDir reports whether the directory at path should not be entered.
// The root itself is never skipped.
func (f *Filter) SkipDir(path string) bool {
	rel, ok := f.rel(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	return f.ignore.MatchesPath(rel + "/")
}

// Match reports whether the file at path is a watched source.
func (f *Filter) Match(path string) bool {
	rel, ok := f.rel(path)
	if !ok || rel == "." {
		return false
	}
	if f.ignore.MatchesPath(rel) {
		return false
	}
	matched, err := doublestar.Match(f.include, rel)
	return err == nil && matched
}
