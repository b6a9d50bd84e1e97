package engine

import "github.com/yacobolo/lesswatch/internal/compile"

// Sink routes compile failures. While scanning they are queued; once ready
// they are emitted immediately through emit.
type Sink struct {
	emit    func(*compile.Failure)
	queue   []*compile.Failure
	drained bool
}

// NewSink creates a Sink that emits through fn.
func NewSink(fn func(*compile.Failure)) *Sink {
	return &Sink{emit: fn}
}

// Report queues f when state is Scanning and emits it otherwise.
func (s *Sink) Report(f *compile.Failure, state State) {
	if state == Scanning && !s.drained {
		s.queue = append(s.queue, f)
		return
	}
	s.emit(f)
}

// Drain emits every queued failure in arrival order and disables the queue.
// Calls after the first are no-ops.
func (s *Sink) Drain() {
	if s.drained {
		return
	}
	s.drained = true
	queue := s.queue
	s.queue = nil
	for _, f := range queue {
		s.emit(f)
	}
}

// Pending returns the number of queued failures.
func (s *Sink) Pending() int {
	return len(s.queue)
}
