package pack

import (
	"math"
	"math/rand/v2"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// Sampler names accepted by [SamplerByName].
const (
	SamplerRejection = "rejection"
	SamplerPolar     = "polar"
)

// Sampler draws a candidate centre for a circle of the given radius that lies
// strictly inside the inscribed circle of a width×width canvas.
type Sampler interface {
	Sample(rng *rand.Rand, width, radius float64) (x, y float64)
}

// Rejection draws uniformly from the square [r, w-r]² and redraws until the
// point falls inside the allowed disc. Each redraw consumes two values from
// rng. The loop is unbounded; [Validate] guarantees the disc is non-empty.
type Rejection struct{}

// Sample implements [Sampler].
func (Rejection) Sample(rng *rand.Rand, width, radius float64) (float64, float64) {
	half := width * 0.5
	span := width - 2*radius
	limit := (half - radius) * (half - radius)
	for {
		x := radius + rng.Float64()*span
		y := radius + rng.Float64()*span
		if dx, dy := x-half, y-half; dx*dx+dy*dy < limit {
			return x, y
		}
	}
}

// Polar draws an angle and a square-root-scaled distance, which is uniform
// over the allowed disc and always succeeds with two draws.
type Polar struct{}

// Sample implements [Sampler].
func (Polar) Sample(rng *rand.Rand, width, radius float64) (float64, float64) {
	half := width * 0.5
	theta := 2 * math.Pi * rng.Float64()
	d := math.Sqrt(rng.Float64()) * (half - radius)
	return half + d*math.Cos(theta), half + d*math.Sin(theta)
}

// SamplerByName resolves a sampler name. The empty name selects [Rejection].
func SamplerByName(name string) (Sampler, error) {
	switch name {
	case "", SamplerRejection:
		return Rejection{}, nil
	case SamplerPolar:
		return Polar{}, nil
	default:
		return nil, perrors.New(perrors.ErrCodeInvalidSampler,
			"unknown sampler: %q (must be %q or %q)", name, SamplerRejection, SamplerPolar)
	}
}

// String returns the sampler's name.
func (Rejection) String() string { return SamplerRejection }

// String returns the sampler's name.
func (Polar) String() string { return SamplerPolar }

var (
	_ Sampler = Rejection{}
	_ Sampler = Polar{}
)
