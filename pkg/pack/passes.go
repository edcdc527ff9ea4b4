package pack

import (
	"math"
	"strconv"
	"strings"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// defaultSchedule lists (radius as a fraction of width, attempts) pairs.
// The final stage deliberately uses a larger radius than the ones before it;
// with the canvas already dense it mostly lands in whatever gaps are left.
var defaultSchedule = []struct {
	frac     float64
	attempts int
}{
	{0.035, 20},
	{0.032, 850},
	{0.030, 700},
	{0.025, 1500},
	{0.021, 5000},
	{0.016, 10000},
	{0.013, 1000000},
	{0.08, 1000000},
}

// DefaultWidth is the canvas width used when none is given.
const DefaultWidth = 1000.0

// DefaultPasses returns the eight-stage default schedule scaled to width.
func DefaultPasses(width float64) []Pass {
	passes := make([]Pass, len(defaultSchedule))
	for i, s := range defaultSchedule {
		passes[i] = Pass{Radius: width * s.frac, Attempts: s.attempts}
	}
	return passes
}

// DefaultSpacing returns the default minimum gap for a canvas of width.
func DefaultSpacing(width float64) float64 {
	return width * 0.0004
}

// ParsePasses parses a comma-separated "radius,attempts,radius,attempts,..."
// list. Whitespace around tokens is ignored.
func ParsePasses(s string) ([]Pass, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidPasses, "pass schedule is empty")
	}

	tokens := strings.Split(s, ",")
	if len(tokens)%2 != 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidPasses,
			"pass schedule needs radius,attempts pairs (got %d values)", len(tokens))
	}

	passes := make([]Pass, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		rtok, atok := strings.TrimSpace(tokens[i]), strings.TrimSpace(tokens[i+1])

		radius, err := strconv.ParseFloat(rtok, 64)
		if err != nil || math.IsNaN(radius) || math.IsInf(radius, 0) {
			return nil, perrors.New(perrors.ErrCodeInvalidPasses, "pass %d: invalid radius %q", i/2+1, rtok)
		}
		attempts, err := strconv.ParseUint(atok, 10, 32)
		if err != nil {
			return nil, perrors.New(perrors.ErrCodeInvalidPasses, "pass %d: invalid attempt count %q", i/2+1, atok)
		}
		passes = append(passes, Pass{Radius: radius, Attempts: int(attempts)})
	}
	return passes, nil
}

// FormatPasses renders passes in the form accepted by [ParsePasses].
func FormatPasses(passes []Pass) string {
	var b strings.Builder
	for i, p := range passes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(p.Radius, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(p.Attempts))
	}
	return b.String()
}

// TotalAttempts sums the attempt budgets of passes, saturating at
// math.MaxInt.
func TotalAttempts(passes []Pass) int {
	n := 0
	for _, p := range passes {
		if p.Attempts > 0 && n > math.MaxInt-p.Attempts {
			return math.MaxInt
		}
		n += p.Attempts
	}
	return n
}
