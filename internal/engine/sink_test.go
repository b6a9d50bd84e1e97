package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yacobolo/lesswatch/internal/compile"
)

func failure(path string, line int) *compile.Failure {
	return &compile.Failure{Kind: compile.KindCompile, Path: path, Line: line, Column: 1, Message: "bad"}
}

func TestSinkQueuesWhileScanning(t *testing.T) {
	var emitted []string
	s := NewSink(func(f *compile.Failure) { emitted = append(emitted, f.Location()) })

	s.Report(failure("/x/one.less", 1), Scanning)
	s.Report(failure("/x/two.less", 2), Scanning)
	s.Report(failure("/x/three.less", 3), Scanning)

	assert.Empty(t, emitted)
	assert.Equal(t, 3, s.Pending())

	s.Drain()
	assert.Equal(t, []string{"/x/one.less:1:1", "/x/two.less:2:1", "/x/three.less:3:1"}, emitted)
	assert.Equal(t, 0, s.Pending())

	s.Drain()
	assert.Len(t, emitted, 3, "second drain emits nothing")
}

func TestSinkReportsImmediatelyWhenReady(t *testing.T) {
	var emitted []string
	s := NewSink(func(f *compile.Failure) { emitted = append(emitted, f.Location()) })

	s.Report(failure("/x/a.less", 4), Ready)
	assert.Equal(t, []string{"/x/a.less:4:1"}, emitted)
	assert.Equal(t, 0, s.Pending())
}

func TestSinkNeverQueuesAfterDrain(t *testing.T) {
	var emitted int
	s := NewSink(func(*compile.Failure) { emitted++ })
	s.Drain()

	s.Report(failure("/x/late.less", 1), Scanning)
	assert.Equal(t, 1, emitted)
	assert.Equal(t, 0, s.Pending())
}

func TestReadinessTransitionsOnce(t *testing.T) {
	calls := 0
	r := newReadiness(func() { calls++ })
	assert.Equal(t, Scanning, r.Current())

	assert.True(t, r.MarkReady())
	assert.False(t, r.MarkReady())
	assert.Equal(t, Ready, r.Current())
	assert.Equal(t, 1, calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "scanning", Scanning.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src  string
		ext  string
		want string
	}{
		{"/p/a.less", "wxss", "/p/a.wxss"},
		{"/p/a.less", ".css", "/p/a.css"},
		{"/p/v1.2/theme.less", "acss", "/p/v1.2/theme.acss"},
		{"/p/noext", "css", "/p/noext.css"},
	}
	for _, tt := range tests {
		t.Run(tt.src+"->"+tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.src, tt.ext))
		})
	}
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.wxss"

	assert.NoError(t, FileWriter{}.Write(path, ".a{}\n"))
	assert.FileExists(t, path)

	err := FileWriter{}.Write(dir+"/missing/out.wxss", "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "writing")
}
