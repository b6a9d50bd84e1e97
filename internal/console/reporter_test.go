package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yacobolo/lesswatch/internal/compile"
	"github.com/yacobolo/lesswatch/internal/engine"
)

func TestBuildCaretIndicator(t *testing.T) {
	tests := []struct {
		name       string
		sourceLine string
		column     int
		want       string
	}{
		{
			name:       "spaces only",
			sourceLine: "  color: @missing;",
			column:     10,
			want:       "         ^",
		},
		{
			name:       "tabs and spaces",
			sourceLine: "\t\twidth: 1px + 1em;",
			column:     14,
			want:       "\t\t           ^",
		},
		{
			name:       "start of line",
			sourceLine: "}",
			column:     1,
			want:       "^",
		},
		{
			name:       "column 0 fallback",
			sourceLine: "some line",
			column:     0,
			want:       "^",
		},
		{
			name:       "column beyond line length",
			sourceLine: "short",
			column:     100,
			want:       "     ^",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, buildCaretIndicator(tt.sourceLine, tt.column))
		})
	}
}

func TestReporterFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, WithBaseDir("/project"))

	r.Failure(&compile.Failure{
		Kind:    compile.KindCompile,
		Path:    "/project/pages/b.less",
		Line:    2,
		Column:  10,
		Message: "variable @missing is undefined",
		Source:  "  color: @missing;",
	})

	assert.Equal(t, "✗ pages/b.less:2:10: variable @missing is undefined\n"+
		"\t  color: @missing;\n"+
		"\t         ^\n", buf.String())
}

func TestReporterReadFailureHasNoPosition(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, WithBaseDir("/project"))

	r.Failure(&compile.Failure{Kind: compile.KindRead, Path: "/elsewhere/x.less", Message: "permission denied"})

	assert.Equal(t, "✗ /elsewhere/x.less: permission denied\n", buf.String())
}

func TestReporterNotices(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, WithBaseDir("/project"))

	r.Ready(false)
	r.Compiled("/project/b.wxss")
	r.DependentCompiled("/project/a.wxss")
	r.Ready(true)

	assert.Equal(t, "✓ scan complete\n"+
		"✓ compiled: b.wxss\n"+
		"  ✓ dependent compiled: a.wxss\n"+
		"✓ initial compile complete\n", buf.String())
}

func TestReporterQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, WithQuiet(true), WithBaseDir("/project"))

	r.Ready(false)
	r.Compiled("/project/b.wxss")
	r.DependentCompiled("/project/a.wxss")
	r.Summary(engine.Stats{Compiled: 2, Written: 2})
	assert.Empty(t, buf.String())

	r.Failure(&compile.Failure{Path: "/project/b.less", Line: 1, Column: 1, Message: "boom"})
	assert.Equal(t, "✗ b.less:1:1: boom\n", buf.String())
}

func TestReporterSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Summary(engine.Stats{Compiled: 1, Written: 3, Failed: 2})
	assert.Equal(t, "\n1 file compiled, 3 outputs written, 2 failures\n", buf.String())
}

func TestReporterColors(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, WithColors(true), WithBaseDir("/project"))
	r.Compiled("/project/b.wxss")
	assert.Contains(t, buf.String(), "b.wxss")
}

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerStoppedByReady(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out, "scanning", false)
	s.interval = time.Millisecond
	s.Start()
	s.Start()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "scanning") >= len(SpinnerFrames)
	}, time.Second, time.Millisecond)

	var notices bytes.Buffer
	NewReporter(&notices, WithSpinner(s)).Ready(false)
	s.Stop()

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "\r- scanning"))
	assert.Contains(t, got, "\r\\ scanning")
	assert.True(t, strings.HasSuffix(got, "\r\033[K"), "line is cleared on stop")
	assert.Equal(t, "✓ scan complete\n", notices.String())

	// nothing is drawn after Stop returns
	n := len(got)
	time.Sleep(5 * time.Millisecond)
	assert.Len(t, out.String(), n)
}

func TestTerminalDetection(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))

	t.Setenv("NO_COLOR", "1")
	assert.True(t, ShouldUseColors(true, f), "explicit flag wins")
	assert.False(t, ShouldUseColors(false, f))

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")
	assert.True(t, ShouldUseColors(false, f))
}
