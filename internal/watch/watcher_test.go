package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// collect drains the stream until it is closed.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream was not closed")
			return out
		}
	}
}

func defaultConfig(root string) Config {
	return Config{
		Root:      root,
		Include:   "**/*.less",
		Ignore:    []string{"node_modules/", ".git/"},
		Gitignore: true,
	}
}

func TestScanEmitsAddsThenReady(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.less":                   "",
		"pages/b.less":             "",
		"pages/b.wxss":             "",
		"styles.css":               "",
		"node_modules/lib/x.less":  "",
		"build/out.less":           "",
		".gitignore":               "build/\n",
		"pages/deep/nested/c.less": "",
	})

	w, err := New(defaultConfig(root))
	require.NoError(t, err)
	events, err := w.Start(context.Background())
	require.NoError(t, err)

	got := collect(t, events)
	assert.Equal(t, []Event{
		{Op: OpAdd, Path: filepath.Join(root, "a.less")},
		{Op: OpAdd, Path: filepath.Join(root, "pages", "b.less")},
		{Op: OpAdd, Path: filepath.Join(root, "pages", "deep", "nested", "c.less")},
		{Op: OpReady},
	}, got)
}

func TestGitignoreCanBeDisabled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":     "build/\n",
		"build/out.less": "",
	})

	cfg := defaultConfig(root)
	cfg.Gitignore = false
	w, err := New(cfg)
	require.NoError(t, err)
	events, err := w.Start(context.Background())
	require.NoError(t, err)

	got := collect(t, events)
	assert.Equal(t, []Event{
		{Op: OpAdd, Path: filepath.Join(root, "build", "out.less")},
		{Op: OpReady},
	}, got)
}

func TestEmptyRootStillSignalsReady(t *testing.T) {
	w, err := New(defaultConfig(t.TempDir()))
	require.NoError(t, err)
	events, err := w.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Event{{Op: OpReady}}, collect(t, events))
}

func TestInvalidIncludePattern(t *testing.T) {
	cfg := defaultConfig(t.TempDir())
	cfg.Include = "[unclosed"
	_, err := New(cfg)
	assert.Error(t, err)
}

// next waits for the first event matching want, skipping others.
func next(t *testing.T, events <-chan Event, want Event) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed while waiting for %v", want)
			if ev == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s", want.Op, want.Path)
		}
	}
}

func TestLiveEvents(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.less": ".a{}"})

	cfg := defaultConfig(root)
	cfg.Watch = true
	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := w.Start(ctx)
	require.NoError(t, err)

	next(t, events, Event{Op: OpReady})

	a := filepath.Join(root, "a.less")
	require.NoError(t, os.WriteFile(a, []byte(".a{color:red}"), 0o644))
	next(t, events, Event{Op: OpChange, Path: a})

	b := filepath.Join(root, "b.less")
	require.NoError(t, os.WriteFile(b, []byte(".b{}"), 0o644))
	next(t, events, Event{Op: OpAdd, Path: b})

	// a new directory is picked up, including files created inside it later
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	c := filepath.Join(sub, "c.less")
	require.NoError(t, os.WriteFile(c, []byte(".c{}"), 0o644))
	next(t, events, Event{Op: OpAdd, Path: c})

	cancel()
	for range events {
	}
}

func TestFilter(t *testing.T) {
	root := t.TempDir()
	f, err := NewFilter(root, "**/*.less", []string{"node_modules/", "*.tmp.less"}, false)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"top level", "a.less", true},
		{"nested", "x/y/z.less", true},
		{"other extension", "a.wxss", false},
		{"ignored dir", "node_modules/pkg/a.less", false},
		{"ignored glob", "scratch.tmp.less", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(filepath.Join(root, filepath.FromSlash(tt.path))))
		})
	}

	assert.False(t, f.Match(filepath.Join(filepath.Dir(root), "outside.less")))
	assert.False(t, f.SkipDir(root))
	assert.True(t, f.SkipDir(filepath.Join(root, "node_modules")))
	assert.False(t, f.SkipDir(filepath.Join(root, "src")))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "change", OpChange.String())
	assert.Equal(t, "ready", OpReady.String())
	assert.Equal(t, "unknown", Op(42).String())
}
