// Package render serializes coloured circle packings.
//
// # Overview
//
// A packing is a canvas width plus an ordered list of [colorize.Circle]
// values. This package turns it into:
//
//   - SVG: one <circle> per entry, in acceptance order, so later circles
//     paint over earlier ones
//   - JSON: the circles together with the parameters that produced them,
//     for caching and re-rendering
//   - PDF and PNG: converted from the SVG (requires rsvg-convert)
//
// # SVG Output
//
// [SVG] writes a square viewBox of the canvas width:
//
//	<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1000 1000">
//	  <circle r="35" cx="512.25" cy="130.5" fill="black" />
//	</svg>
//
// Numbers use the shortest decimal form that parses back to the same float64,
// so a parsed document reproduces the circle values exactly.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := render.SVG(circles, width)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, render.WithScale(2))       // 2x scale
//	png, err := render.ToPNG(svg, render.WithPixelSize(512)) // 512x512 pixels
//
// A missing rsvg-convert is reported with the UNSUPPORTED error code.
package render
