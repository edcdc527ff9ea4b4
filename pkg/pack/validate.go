package pack

import (
	"math"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// Validate rejects geometry the packer cannot work with.
//
// A radius of at least half the width leaves no room for a centre inside the
// inscribed circle, and the rejection sampler would spin forever; such passes
// are refused here instead of hanging.
func Validate(width float64, passes []Pass, spacing float64) error {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return perrors.New(perrors.ErrCodeInvalidGeometry, "width must be a positive number (got %v)", width)
	}
	if math.IsNaN(spacing) || math.IsInf(spacing, 0) || spacing < 0 {
		return perrors.New(perrors.ErrCodeInvalidGeometry, "spacing must be a non-negative number (got %v)", spacing)
	}
	for i, p := range passes {
		switch {
		case math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) || p.Radius <= 0:
			return perrors.New(perrors.ErrCodeInvalidGeometry, "pass %d: radius must be positive (got %v)", i+1, p.Radius)
		case 2*p.Radius >= width:
			return perrors.New(perrors.ErrCodeInvalidGeometry,
				"pass %d: radius %v does not fit a canvas of width %v", i+1, p.Radius, width)
		case p.Attempts < 0:
			return perrors.New(perrors.ErrCodeInvalidGeometry, "pass %d: attempts must not be negative (got %d)", i+1, p.Attempts)
		}
	}
	return nil
}
