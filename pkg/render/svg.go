package render

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/matzehuels/circlepack/pkg/colorize"
)

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	background string
	size       float64
}

// WithBackground paints the inscribed canvas disc with fill behind the circles.
func WithBackground(fill string) SVGOption { return func(r *svgRenderer) { r.background = fill } }

// WithSize sets explicit width and height attributes in pixels.
func WithSize(px float64) SVGOption { return func(r *svgRenderer) { r.size = px } }

// SVG renders circles on a width×width canvas.
func SVG(circles []colorize.Circle, width float64, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	w := formatFloat(width)
	var buf bytes.Buffer
	buf.Grow(96 + len(circles)*72)

	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 ` + w + " " + w + `"`)
	if r.size > 0 {
		px := formatFloat(r.size)
		buf.WriteString(` width="` + px + `" height="` + px + `"`)
	}
	buf.WriteString(">\n")

	if r.background != "" {
		half := formatFloat(width / 2)
		buf.WriteString(`  <circle r="` + half + `" cx="` + half + `" cy="` + half + `" fill="`)
		writeAttr(&buf, r.background)
		buf.WriteString("\" />\n")
	}

	for _, c := range circles {
		buf.WriteString(`  <circle r="`)
		buf.WriteString(formatFloat(c.R))
		buf.WriteString(`" cx="`)
		buf.WriteString(formatFloat(c.X))
		buf.WriteString(`" cy="`)
		buf.WriteString(formatFloat(c.Y))
		buf.WriteString(`" fill="`)
		writeAttr(&buf, c.Fill)
		buf.WriteString("\" />\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeAttr(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
