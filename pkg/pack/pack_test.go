package pack

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// smallSchedule is a scaled-down default schedule that keeps tests fast.
func smallSchedule(width float64) []Pass {
	return []Pass{
		{Radius: width * 0.05, Attempts: 50},
		{Radius: width * 0.03, Attempts: 400},
		{Radius: width * 0.015, Attempts: 3000},
	}
}

func assertNoOverlap(t *testing.T, ps []Placement, spacing float64) {
	t.Helper()
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if ps[i].Overlaps(ps[j], spacing) {
				t.Fatalf("placements %d and %d overlap: %+v %+v (spacing %v)", i, j, ps[i], ps[j], spacing)
			}
		}
	}
}

func assertContained(t *testing.T, ps []Placement, width, tol float64) {
	t.Helper()
	half := width / 2
	for i, p := range ps {
		d := math.Hypot(p.X-half, p.Y-half)
		if d > half-p.R+tol {
			t.Fatalf("placement %d escapes the canvas: distance %v > %v", i, d, half-p.R)
		}
	}
}

func TestPackInvariants(t *testing.T) {
	tests := []struct {
		name    string
		sampler Sampler
		tol     float64
	}{
		{"rejection", Rejection{}, 0},
		{"polar", Polar{}, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const width, spacing = 1000.0, 0.4
			ps, err := Pack(context.Background(), width, smallSchedule(width), spacing, NewRand(7), WithSampler(tt.sampler))
			require.NoError(t, err)
			require.NotEmpty(t, ps)

			assertNoOverlap(t, ps, spacing)
			assertContained(t, ps, width, tt.tol)
		})
	}
}

func TestPackSingleAttempt(t *testing.T) {
	ps, err := Pack(context.Background(), 100, []Pass{{Radius: 10, Attempts: 1}}, 0, NewRand(1))
	require.NoError(t, err)

	// The first candidate has nothing to collide with.
	require.Len(t, ps, 1)
	assert.Equal(t, 10.0, ps[0].R)
	assert.LessOrEqual(t, math.Hypot(ps[0].X-50, ps[0].Y-50), 40.0)
}

func TestPackSpacing(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		ps, err := Pack(context.Background(), 100, []Pass{{Radius: 10, Attempts: 100}}, 5, NewRand(seed))
		require.NoError(t, err)

		for i := range ps {
			for j := i + 1; j < len(ps); j++ {
				d := math.Hypot(ps[i].X-ps[j].X, ps[i].Y-ps[j].Y)
				assert.GreaterOrEqual(t, d, 25.0-1e-9, "seed %d: pair %d/%d", seed, i, j)
			}
		}
		// A disc of radius 40 cannot hold more than (40+12.5)²/12.5² circles with 25 between centres.
		assert.LessOrEqual(t, len(ps), 17)
	}
}

func TestPackDeterministic(t *testing.T) {
	run := func() []Placement {
		ps, err := Pack(context.Background(), 500, smallSchedule(500), 0.2, NewRand(99))
		require.NoError(t, err)
		return ps
	}
	a, b := run(), run()
	assert.True(t, slices.Equal(a, b), "same seed produced different packings")

	c, err := Pack(context.Background(), 500, smallSchedule(500), 0.2, NewRand(100))
	require.NoError(t, err)
	assert.False(t, slices.Equal(a, c), "different seeds produced identical packings")
}

func TestPackAppendingPassesKeepsPrefix(t *testing.T) {
	const width = 400.0
	base := smallSchedule(width)
	extended := append(slices.Clone(base), Pass{Radius: width * 0.01, Attempts: 2000})

	short, err := Pack(context.Background(), width, base, 0.1, NewRand(5))
	require.NoError(t, err)
	long, err := Pack(context.Background(), width, extended, 0.1, NewRand(5))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(long), len(short))
	assert.Equal(t, short, long[:len(short)])
}

func TestGridMatchesBruteForce(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 42} {
		passes := smallSchedule(800)
		fast, err := New(800, 1.5).Run(context.Background(), passes, NewRand(seed))
		require.NoError(t, err)
		slow, err := New(800, 1.5, WithBruteForce()).Run(context.Background(), passes, NewRand(seed))
		require.NoError(t, err)

		assert.Equal(t, slow.Placements, fast.Placements, "seed %d", seed)
		assert.Equal(t, slow.Accepted, fast.Accepted, "seed %d", seed)
	}
}

func TestGridColumnsBounded(t *testing.T) {
	g := newGrid(1000, 0.001, 0, 1<<30)
	assert.Equal(t, maxGridCols, g.cols)
	assert.GreaterOrEqual(t, g.cell, 0.002)
	assert.InDelta(t, 1000.0, g.cell*float64(g.cols-1), 1e-9)

	g = newGrid(1000, 0.001, 0, 10)
	assert.LessOrEqual(t, g.cols, 5)

	g = newGrid(1000, 80, 0.4, 1<<20)
	assert.InDelta(t, 160.4, g.cell, 1e-9)
}

func TestPackTinyRadius(t *testing.T) {
	ps, err := Pack(context.Background(), 1000, []Pass{{Radius: 0.001, Attempts: 10}}, 0, NewRand(1))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ps), 10)
	assertNoOverlap(t, ps, 0)
	assertContained(t, ps, 1000, 1e-9)
}

func TestCoarseGridMatchesBruteForce(t *testing.T) {
	// 20000 attempts bound the grid to 143 columns, well under width/(2r).
	passes := []Pass{{Radius: 1, Attempts: 20000}}
	require.Less(t, newGrid(1000, 1, 0, TotalAttempts(passes)).cols, 500)

	fast, err := New(1000, 0).Run(context.Background(), passes, NewRand(9))
	require.NoError(t, err)
	slow, err := New(1000, 0, WithBruteForce()).Run(context.Background(), passes, NewRand(9))
	require.NoError(t, err)
	assert.Equal(t, slow.Placements, fast.Placements)
}

func TestRunAcceptedPerPass(t *testing.T) {
	passes := smallSchedule(600)
	res, err := New(600, 0).Run(context.Background(), passes, NewRand(3))
	require.NoError(t, err)
	require.Len(t, res.Accepted, len(passes))

	total := 0
	for i, n := range res.Accepted {
		assert.LessOrEqual(t, n, passes[i].Attempts)
		total += n
	}
	assert.Equal(t, len(res.Placements), total)
	// The first pass always accepts its first candidate.
	assert.Positive(t, res.Accepted[0])
}

func TestRunZeroAttempts(t *testing.T) {
	res, err := New(100, 0).Run(context.Background(), []Pass{{Radius: 5, Attempts: 0}}, NewRand(1))
	require.NoError(t, err)
	assert.Empty(t, res.Placements)
	assert.Equal(t, []int{0}, res.Accepted)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(100, 0).Run(ctx, []Pass{{Radius: 5, Attempts: 10}}, NewRand(1))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Placements)
}

func TestRunInvalidGeometry(t *testing.T) {
	_, err := Pack(context.Background(), 100, []Pass{{Radius: 50, Attempts: 10}}, 0, NewRand(1))
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidGeometry))
}

type recordingObserver struct {
	started   []int
	completed []int
	accepted  []int
}

func (o *recordingObserver) OnPassStart(i int, _ Pass) { o.started = append(o.started, i) }
func (o *recordingObserver) OnPassComplete(i int, _ Pass, n int, _ time.Duration) {
	o.completed = append(o.completed, i)
	o.accepted = append(o.accepted, n)
}

func TestRunObserver(t *testing.T) {
	obs := &recordingObserver{}
	passes := smallSchedule(300)
	res, err := New(300, 0, WithObserver(obs)).Run(context.Background(), passes, NewRand(11))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, obs.started)
	assert.Equal(t, []int{0, 1, 2}, obs.completed)
	assert.Equal(t, res.Accepted, obs.accepted)
}

func TestOverlaps(t *testing.T) {
	a := Placement{X: 0, Y: 0, R: 1}
	tests := []struct {
		name    string
		b       Placement
		spacing float64
		want    bool
	}{
		{"touching is not overlapping", Placement{X: 2, Y: 0, R: 1}, 0, false},
		{"intersecting", Placement{X: 1.5, Y: 0, R: 1}, 0, true},
		{"gap smaller than spacing", Placement{X: 2.5, Y: 0, R: 1}, 1, true},
		{"gap equal to spacing", Placement{X: 3, Y: 0, R: 1}, 1, false},
		{"diagonal clear", Placement{X: 3, Y: 4, R: 2}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(tt.b, tt.spacing))
			assert.Equal(t, tt.want, tt.b.Overlaps(a, tt.spacing))
		})
	}
}
