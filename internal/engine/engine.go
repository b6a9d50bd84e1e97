// Package engine is the incremental compile loop: it dispatches watch events
// to the compiler, maintains the import graph during the initial scan,
// decides which results are written, and cascades recompiles to dependents
// once the session is ready.
//
// All engine state is owned by the goroutine running Run. Compiles and
// writes run on their own goroutines and post results back over a channel,
// so a slow compile never holds up other events.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yacobolo/lesswatch/internal/compile"
	"github.com/yacobolo/lesswatch/internal/graph"
	"github.com/yacobolo/lesswatch/internal/watch"
)

// Compiler produces an Outcome for a source path. compile.Adapter
// implements it.
type Compiler interface {
	Compile(ctx context.Context, path string) compile.Outcome
}

// Reporter receives user-facing notices.
type Reporter interface {
	// Compiled is called after a primary compile's output was written.
	Compiled(output string)
	// DependentCompiled is called after a cascade recompile's output was written.
	DependentCompiled(output string)
	// Failure prints a compile failure.
	Failure(f *compile.Failure)
	// Ready is called once on the Scanning -> Ready transition, before
	// deferred failures are emitted.
	Ready(initCompile bool)
}

// Stats counts what a session did.
type Stats struct {
	Compiled int // successful compiles
	Written  int // output files written
	Failed   int // failed compiles
	Cascaded int // dependent recompiles dispatched
}

// Engine is the change dispatcher.
type Engine struct {
	compiler    Compiler
	writer      Writer
	reporter    Reporter
	logger      *slog.Logger
	initCompile bool
	outputExt   string
	scanGrace   time.Duration

	graph *graph.Graph
	state *readiness
	sink  *Sink

	compiled atomic.Int64
	written  atomic.Int64
	failed   atomic.Int64
	cascaded atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitCompile writes outputs for files found during the initial scan.
func WithInitCompile(enabled bool) Option {
	return func(e *Engine) {
		e.initCompile = enabled
	}
}

// WithOutputExt sets the extension of generated files.
func WithOutputExt(ext string) Option {
	return func(e *Engine) {
		e.outputExt = ext
	}
}

// WithWriter replaces the output writer.
func WithWriter(w Writer) Option {
	return func(e *Engine) {
		e.writer = w
	}
}

// WithReporter sets where user-facing notices go.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScanGrace bounds how long a cascade after ready waits for scan
// compiles still in flight.
func WithScanGrace(d time.Duration) Option {
	return func(e *Engine) {
		e.scanGrace = d
	}
}

// DefaultOutputExt is the extension used when none is configured.
const DefaultOutputExt = "wxss"

// DefaultScanGrace is the default for WithScanGrace.
const DefaultScanGrace = 2 * time.Second

// New creates an Engine.
func New(compiler Compiler, opts ...Option) *Engine {
	e := &Engine{
		compiler:  compiler,
		writer:    FileWriter{},
		reporter:  nopReporter{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		outputExt: DefaultOutputExt,
		scanGrace: DefaultScanGrace,
		graph:     graph.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sink = NewSink(e.reporter.Failure)
	e.state = newReadiness(func() {
		e.reporter.Ready(e.initCompile)
		e.sink.Drain()
	})
	return e
}

// Graph returns the import graph. It must not be used while Run is active.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Stats returns a snapshot of the session counters. It is safe to call
// concurrently with Run.
func (e *Engine) Stats() Stats {
	return Stats{
		Compiled: int(e.compiled.Load()),
		Written:  int(e.written.Load()),
		Failed:   int(e.failed.Load()),
		Cascaded: int(e.cascaded.Load()),
	}
}

// job is a unit of work handed to a goroutine.
type job struct {
	path    string
	phase   State // state when the triggering event was dispatched
	cascade bool
}

// compiledMsg is posted back when a compile finishes.
type compiledMsg struct {
	job     job
	outcome compile.Outcome
}

// writtenMsg is posted back when a write finishes.
type writtenMsg struct {
	job    job
	output string
	err    error
}

// Run consumes events until the stream is closed and all in-flight work
// has settled, or until ctx is cancelled.
//
// A ready event is applied as soon as it is read. Scan compiles still in
// flight keep their scan phase: their imports land in the graph and their
// failures print when they complete. Cascades from compiles finished after
// ready are held until the scan work has settled, or for at most the scan
// grace period, so a change right after ready still reaches the files that
// import it. Once a scan compile has outlived the grace period, cascades no
// longer wait.
//
// On cancellation Run waits for writes already started and then returns
// ctx.Err(). Compiles still running are abandoned.
func (e *Engine) Run(ctx context.Context, events <-chan watch.Event) error {
	results := make(chan any)
	var (
		inflight     int
		scanInflight int
		held         []string // sources whose cascade waits for the scan
		grace        <-chan time.Time
		graceSpent   bool // a scan compile outlived the grace period
		writes       sync.WaitGroup
	)

	deliver := func(msg any) {
		select {
		case results <- msg:
		case <-ctx.Done():
		}
	}
	track := func(j job) {
		inflight++
		if j.phase == Scanning {
			scanInflight++
		}
	}
	startCompile := func(j job) {
		track(j)
		go func() {
			deliver(compiledMsg{job: j, outcome: e.compiler.Compile(ctx, j.path)})
		}()
	}
	startWrite := func(j job, css string) {
		track(j)
		output := OutputPath(j.path, e.outputExt)
		writes.Add(1)
		go func() {
			err := e.writer.Write(output, css)
			writes.Done()
			deliver(writtenMsg{job: j, output: output, err: err})
		}()
	}
	flush := func() {
		for _, path := range held {
			for _, dep := range e.cascadeTargets(path) {
				startCompile(job{path: dep, phase: Ready, cascade: true})
			}
		}
		held, grace = nil, nil
	}

	for {
		if len(held) > 0 && scanInflight == 0 {
			flush()
		}
		if events == nil && inflight == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			writes.Wait()
			return ctx.Err()

		case <-grace:
			e.logger.Warn("scan still compiling, cascading with a partial graph", "pending", scanInflight)
			graceSpent = true
			flush()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Op {
			case watch.OpReady:
				e.transition(scanInflight)
			case watch.OpAdd, watch.OpChange:
				path := graph.Normalize(ev.Path)
				e.logger.Debug("dispatch", "op", ev.Op.String(), "path", path, "state", e.state.Current().String())
				startCompile(job{path: path, phase: e.state.Current()})
			}

		case msg := <-results:
			var j job
			switch m := msg.(type) {
			case compiledMsg:
				j = m.job
				next, cascade := e.handleCompiled(m)
				for _, f := range next {
					startWrite(f.job, f.css)
				}
				if !cascade {
					break
				}
				if scanInflight == 0 || graceSpent {
					for _, dep := range e.cascadeTargets(j.path) {
						startCompile(job{path: dep, phase: Ready, cascade: true})
					}
					break
				}
				if len(held) == 0 {
					grace = time.After(e.scanGrace)
				}
				held = append(held, j.path)
			case writtenMsg:
				j = m.job
				e.handleWritten(m)
			}
			inflight--
			if j.phase == Scanning {
				scanInflight--
			}
		}
	}
}

// followUp is a write spawned by a finished compile.
type followUp struct {
	job job
	css string
}

// handleCompiled applies a compile result. It returns the writes to start
// and whether the source's dependents should be recompiled.
func (e *Engine) handleCompiled(m compiledMsg) ([]followUp, bool) {
	j, out := m.job, m.outcome
	e.graph.RecordOrGet(j.path)

	if !out.OK() {
		e.failed.Add(1)
		e.logger.Debug("compile failed", "path", j.path, "error", out.Failure.Err())
		e.sink.Report(out.Failure, e.state.Current())
		return nil, false
	}
	e.compiled.Add(1)

	if j.cascade {
		return []followUp{{job: j, css: out.CSS}}, false
	}

	var next []followUp
	if e.shouldWrite(j.phase) && out.CSS != "" {
		next = append(next, followUp{job: j, css: out.CSS})
	}

	if j.phase == Scanning {
		e.graph.RecordImports(j.path, out.Imports)
		return next, false
	}
	return next, true
}

// cascadeTargets returns the files to recompile after path changed.
func (e *Engine) cascadeTargets(path string) []string {
	deps := e.graph.DependentsOf(path)
	for _, dep := range deps {
		e.cascaded.Add(1)
		e.logger.Debug("cascade", "from", path, "to", dep)
	}
	return deps
}

// shouldWrite is the write decision for a primary compile.
func (e *Engine) shouldWrite(phase State) bool {
	return (e.initCompile && phase == Scanning) || phase == Ready
}

func (e *Engine) handleWritten(m writtenMsg) {
	if m.err != nil {
		e.logger.Warn("write failed", "path", m.output, "error", m.err)
		return
	}
	e.written.Add(1)
	if m.job.cascade {
		e.reporter.DependentCompiled(m.output)
		return
	}
	e.reporter.Compiled(m.output)
}

func (e *Engine) transition(scanInflight int) {
	if e.state.Current() == Ready {
		return
	}
	e.logger.Debug("ready", "files", e.graph.Len(), "deferred", e.sink.Pending(), "compiling", scanInflight)
	e.state.MarkReady()
}

type nopReporter struct{}

func (nopReporter) Compiled(string)          {}
func (nopReporter) DependentCompiled(string) {}
func (nopReporter) Failure(*compile.Failure) {}
func (nopReporter) Ready(bool)               {}
