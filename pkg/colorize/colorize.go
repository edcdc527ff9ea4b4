package colorize

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/circlepack/pkg/pack"
)

// DefaultFill is the fill used when no sampler is supplied.
const DefaultFill = "black"

// Circle is a placement with its final fill.
type Circle struct {
	pack.Placement
	Fill string `json:"fill"`
}

// Sampler maps integer pixel coordinates to colours.
type Sampler interface {
	// Dimensions returns the pixel grid size.
	Dimensions() (width, height int)
	// At returns the colour at (x, y), where (0, 0) is the top-left pixel.
	At(x, y int) color.Color
}

// Colorize returns one Circle per placement, in the same order.
// A nil sampler leaves every fill at DefaultFill.
func Colorize(placements []pack.Placement, width float64, s Sampler) []Circle {
	circles := make([]Circle, len(placements))
	if s == nil {
		for i, p := range placements {
			circles[i] = Circle{Placement: p, Fill: DefaultFill}
		}
		return circles
	}

	iw, ih := s.Dimensions()
	sx, sy := float64(iw)/width, float64(ih)/width
	for i, p := range placements {
		x := int(math.Floor(sx * p.X))
		y := int(math.Floor(sy * p.Y))
		circles[i] = Circle{Placement: p, Fill: RGBA(s.At(x, y))}
	}
	return circles
}

// RGBA formats c as "rgba(r,g,b,a)" with 8-bit non-premultiplied channels.
func RGBA(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)

	var b strings.Builder
	b.Grow(len("rgba(255,255,255,255)"))
	b.WriteString("rgba(")
	b.WriteString(strconv.Itoa(int(n.R)))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(n.G)))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(n.B)))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(n.A)))
	b.WriteByte(')')
	return b.String()
}
