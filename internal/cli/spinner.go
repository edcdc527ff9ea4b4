package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/circlepack/pkg/pack"
)

// Spinner animates a status line on stderr until stopped or its context is
// cancelled. Frames and rate come from the bubbles MiniDot spinner.
type Spinner struct {
	mu      sync.Mutex
	message string
	placed  int // circles accepted by completed passes
	width   int // widest line drawn so far

	style   spinner.Spinner
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that will stop when the context is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		style:   spinner.MiniDot,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.style.FPS)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(s.style.Frames[i%len(s.style.Frames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := s.line()
	s.width = max(s.width, len(line))
	fmt.Fprintf(uiOut, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(line))
}

// line is the status text; callers hold mu.
func (s *Spinner) line() string {
	if s.placed == 0 {
		return s.message
	}
	return fmt.Sprintf("%s  %d circles", s.message, s.placed)
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop stops the spinner and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.cancel()
	s.once.Do(func() { close(s.done) })
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(uiOut, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.line()))+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// OnPassStart implements pack.Observer by showing the running pass.
func (s *Spinner) OnPassStart(i int, p pack.Pass) {
	s.SetMessage(fmt.Sprintf("Packing pass %d (r=%g, %d attempts)...", i+1, p.Radius, p.Attempts))
}

// OnPassComplete implements pack.Observer by adding the pass's circles to
// the running total.
func (s *Spinner) OnPassComplete(_ int, _ pack.Pass, accepted int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed += accepted
}

// interactive reports whether status animation should be drawn on stderr.
func interactive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
