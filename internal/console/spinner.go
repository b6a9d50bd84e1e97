package console

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SpinnerFrames are drawn in order, one per interval.
var SpinnerFrames = []string{"-", "\\", "|", "/"}

// SpinnerInterval is the time between frames.
const SpinnerInterval = 80 * time.Millisecond

// Spinner draws a one-line progress indicator until stopped.
type Spinner struct {
	w         io.Writer
	msg       string
	useColors bool
	interval  time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewSpinner creates a stopped spinner.
func NewSpinner(w io.Writer, msg string, useColors bool) *Spinner {
	return &Spinner{w: w, msg: msg, useColors: useColors, interval: SpinnerInterval}
}

// Start draws the first frame and keeps animating in the background.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
}

func (s *Spinner) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := SpinnerFrames[i%len(SpinnerFrames)]
		fmt.Fprintf(s.w, "\r%s %s", RenderStyle(StyleGray, frame, s.useColors), s.msg)
		select {
		case <-s.stop:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop clears the line and waits for the animation to end. It is safe to
// call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	<-s.done
}
