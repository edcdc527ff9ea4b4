package pack

import (
	"context"
	"math/rand/v2"
	"time"
)

// ctxCheckInterval is how many attempts run between context checks.
const ctxCheckInterval = 4096

// Pass is one stage of a packing schedule.
type Pass struct {
	Radius   float64 `json:"radius" toml:"radius" yaml:"radius"`
	Attempts int     `json:"attempts" toml:"attempts" yaml:"attempts"`
}

// Placement is an accepted circle. It carries geometry only; colour is
// assigned later by a separate stage.
type Placement struct {
	X float64 `json:"cx"`
	Y float64 `json:"cy"`
	R float64 `json:"r"`
}

// Overlaps reports whether p and q are closer than their radii plus spacing.
func (p Placement) Overlaps(q Placement, spacing float64) bool {
	dx, dy := p.X-q.X, p.Y-q.Y
	reach := p.R + q.R + spacing
	return dx*dx+dy*dy < reach*reach
}

// Observer receives progress events while a schedule runs.
// Callbacks run on the packing goroutine and should return quickly.
type Observer interface {
	OnPassStart(index int, p Pass)
	OnPassComplete(index int, p Pass, accepted int, elapsed time.Duration)
}

// Result is the outcome of a packing run.
type Result struct {
	// Placements in acceptance order.
	Placements []Placement
	// Accepted holds the number of circles each pass added, indexed like the schedule.
	Accepted []int
}

// Option configures a [Packer].
type Option func(*Packer)

// WithSampler selects the candidate sampling strategy (default [Rejection]).
func WithSampler(s Sampler) Option {
	return func(p *Packer) {
		if s != nil {
			p.sampler = s
		}
	}
}

// WithObserver registers an observer for pass progress.
func WithObserver(o Observer) Option { return func(p *Packer) { p.observer = o } }

// WithBruteForce disables the grid index and tests every candidate against
// every accepted circle.
func WithBruteForce() Option { return func(p *Packer) { p.bruteForce = true } }

// Packer runs packing schedules on a fixed canvas.
type Packer struct {
	Width   float64
	Spacing float64

	sampler    Sampler
	observer   Observer
	bruteForce bool
}

// New creates a packer for a square canvas of the given width.
func New(width, spacing float64, opts ...Option) *Packer {
	p := &Packer{
		Width:   width,
		Spacing: spacing,
		sampler: Rejection{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pack validates the inputs and runs the schedule with a default [Packer].
func Pack(ctx context.Context, width float64, passes []Pass, spacing float64, rng *rand.Rand, opts ...Option) ([]Placement, error) {
	res, err := New(width, spacing, opts...).Run(ctx, passes, rng)
	return res.Placements, err
}

// Run executes passes in order and returns every accepted placement.
//
// If ctx is cancelled mid-run, Run returns the placements accepted so far
// together with ctx.Err().
func (p *Packer) Run(ctx context.Context, passes []Pass, rng *rand.Rand) (Result, error) {
	if err := Validate(p.Width, passes, p.Spacing); err != nil {
		return Result{}, err
	}

	res := Result{Accepted: make([]int, len(passes))}
	idx := p.newIndex(passes)
	checks := 0

	for i, pass := range passes {
		if p.observer != nil {
			p.observer.OnPassStart(i, pass)
		}
		start := time.Now()
		before := len(res.Placements)

		for range pass.Attempts {
			if checks%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					res.Accepted[i] = len(res.Placements) - before
					return res, err
				}
			}
			checks++

			x, y := p.sampler.Sample(rng, p.Width, pass.Radius)
			cand := Placement{X: x, Y: y, R: pass.Radius}
			if idx.collides(cand, res.Placements, p.Spacing) {
				continue
			}
			idx.insert(cand, len(res.Placements))
			res.Placements = append(res.Placements, cand)
		}

		res.Accepted[i] = len(res.Placements) - before
		if p.observer != nil {
			p.observer.OnPassComplete(i, pass, res.Accepted[i], time.Since(start))
		}
	}
	return res, nil
}

func (p *Packer) newIndex(passes []Pass) index {
	if p.bruteForce {
		return linearIndex{}
	}
	return newGrid(p.Width, maxRadius(passes), p.Spacing, TotalAttempts(passes))
}

// NewRand returns a PCG-backed generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func maxRadius(passes []Pass) float64 {
	var r float64
	for _, p := range passes {
		r = max(r, p.Radius)
	}
	return r
}
