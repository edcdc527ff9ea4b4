package pipeline

import (
	"fmt"

	"github.com/matzehuels/circlepack/pkg/colorize"
	"github.com/matzehuels/circlepack/pkg/render"
)

// Render generates output artifacts in the requested formats.
func Render(circles []colorize.Circle, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var svg []byte
	svgData := func() []byte {
		if svg == nil {
			svg = render.SVG(circles, opts.WidthValue(), buildSVGOptions(opts)...)
		}
		return svg
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svgData()
		case FormatPNG:
			data, err = render.ToPNG(svgData(), buildConvertOptions(opts)...)
		case FormatPDF:
			data, err = render.ToPDF(svgData(), buildConvertOptions(opts)...)
		case FormatJSON:
			data, err = render.JSON(circles, opts.WidthValue(), buildJSONOptions(opts)...)
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// RenderFromJSON re-renders a document previously exported as JSON.
func RenderFromJSON(data []byte, opts Options) (map[string][]byte, error) {
	doc, err := render.ReadJSON(data)
	if err != nil {
		return nil, err
	}
	w := doc.Width
	opts.Width = &w
	if opts.Seed == 0 {
		opts.Seed = doc.Seed
	}
	if opts.Sampler == "" {
		opts.Sampler = doc.Sampler
	}
	if len(opts.Passes) == 0 {
		opts.Passes = doc.Passes
	}
	if opts.Spacing == nil && doc.Spacing != 0 {
		s := doc.Spacing
		opts.Spacing = &s
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{FormatSVG}
	}
	return Render(doc.Circles, opts)
}

func buildSVGOptions(opts Options) []render.SVGOption {
	var svgOpts []render.SVGOption
	if opts.Background != "" {
		svgOpts = append(svgOpts, render.WithBackground(opts.Background))
	}
	if opts.Size > 0 {
		svgOpts = append(svgOpts, render.WithSize(opts.Size))
	}
	return svgOpts
}

// buildConvertOptions sizes PNG and PDF output to Size when set and scales
// the canvas by DefaultPNGScale otherwise.
func buildConvertOptions(opts Options) []render.ConvertOption {
	if opts.Size > 0 {
		return []render.ConvertOption{render.WithPixelSize(opts.Size)}
	}
	return []render.ConvertOption{render.WithScale(DefaultPNGScale)}
}

func buildJSONOptions(opts Options) []render.JSONOption {
	jsonOpts := []render.JSONOption{
		render.WithJSONSpacing(opts.SpacingValue()),
		render.WithJSONSeed(opts.Seed),
		render.WithJSONPasses(opts.Passes),
		render.WithJSONSampler(opts.Sampler),
	}
	if opts.Image != "" {
		jsonOpts = append(jsonOpts, render.WithJSONImage(opts.Image))
	}
	return jsonOpts
}
