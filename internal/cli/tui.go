package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/circlepack/pkg/pack"
	"github.com/matzehuels/circlepack/pkg/pipeline"
)

var (
	tuiDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	tuiActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	tuiDoneStyle   = lipgloss.NewStyle().Foreground(colorGreen)
)

// =============================================================================
// Messages
// =============================================================================

type passStartedMsg struct{ index int }

type passDoneMsg struct {
	index    int
	accepted int
	elapsed  time.Duration
}

type packDoneMsg struct{ err error }

// =============================================================================
// PackModel - pass-by-pass progress view
// =============================================================================

// PackModel is the bubbletea model for the --tui progress view.
// The bar advances by attempts, so long late passes weigh accordingly.
type PackModel struct {
	Passes   []pack.Pass
	Current  int
	Accepted []int
	Elapsed  []time.Duration
	Done     bool
	Quit     bool
	Err      error

	finished int // attempts in completed passes
	total    int
	bar      progressbar.Model
}

// NewPackModel creates a progress model for the given schedule.
func NewPackModel(passes []pack.Pass) PackModel {
	bar := progressbar.New(progressbar.WithDefaultGradient())
	bar.Width = 40
	return PackModel{
		Passes:   passes,
		Current:  -1,
		Accepted: make([]int, len(passes)),
		Elapsed:  make([]time.Duration, len(passes)),
		total:    pack.TotalAttempts(passes),
		bar:      bar,
	}
}

func (m PackModel) Init() tea.Cmd {
	return nil
}

func (m PackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quit = true
			return m, tea.Quit
		}
	case passStartedMsg:
		m.Current = msg.index
	case passDoneMsg:
		if msg.index >= 0 && msg.index < len(m.Passes) {
			m.Accepted[msg.index] = msg.accepted
			m.Elapsed[msg.index] = msg.elapsed
			m.finished += m.Passes[msg.index].Attempts
		}
	case packDoneMsg:
		m.Done = true
		m.Err = msg.err
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 10), 60)
	}
	return m, nil
}

// Percent returns the fraction of attempts already made.
func (m PackModel) Percent() float64 {
	if m.total == 0 {
		if m.Done {
			return 1
		}
		return 0
	}
	return float64(m.finished) / float64(m.total)
}

func (m PackModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Packing circles"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")

	total := 0
	for i, p := range m.Passes {
		total += m.Accepted[i]
		line := fmt.Sprintf("pass %d/%d  r=%-8g %9d attempts", i+1, len(m.Passes), p.Radius, p.Attempts)
		switch {
		case i < m.Current || (m.Done && i <= m.Current):
			b.WriteString(tuiDoneStyle.Render("✓ " + line))
			b.WriteString(tuiDimStyle.Render(fmt.Sprintf("  +%d (%s)", m.Accepted[i], m.Elapsed[i].Round(time.Millisecond))))
		case i == m.Current:
			b.WriteString(tuiActiveStyle.Render("▸ " + line))
		default:
			b.WriteString(tuiDimStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleNumber.Render(fmt.Sprintf("%d", total)))
	b.WriteString(tuiDimStyle.Render(" circles placed  ·  q to abort"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Running the pipeline under the TUI
// =============================================================================

// teaObserver forwards pass events to a running program.
type teaObserver struct{ p *tea.Program }

func (o teaObserver) OnPassStart(i int, _ pack.Pass) { o.p.Send(passStartedMsg{index: i}) }

func (o teaObserver) OnPassComplete(i int, _ pack.Pass, accepted int, elapsed time.Duration) {
	o.p.Send(passDoneMsg{index: i, accepted: accepted, elapsed: elapsed})
}

// runWithTUI executes the pipeline while a progress view owns the terminal.
// Quitting the view cancels the run.
func runWithTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewPackModel(opts.Passes), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	opts.Observer = teaObserver{p: p}
	opts.Logger = log.New(io.Discard)

	var (
		res    *pipeline.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = runner.Execute(ctx, opts)
		p.Send(packDoneMsg{err: runErr})
	}()

	_, err := p.Run()
	cancel()
	<-done
	if runErr != nil {
		return nil, runErr
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
