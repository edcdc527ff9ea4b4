package render

import (
	"bytes"
	"os/exec"
	"strconv"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// rsvgBinary is the librsvg command-line converter.
const rsvgBinary = "rsvg-convert"

// ConvertOption adjusts raster and PDF conversion.
type ConvertOption func(*convertConfig)

type convertConfig struct {
	scale float64
	size  float64
}

// WithScale multiplies the SVG's intrinsic size by z.
func WithScale(z float64) ConvertOption { return func(c *convertConfig) { c.scale = z } }

// WithPixelSize renders a square output of px by px, overriding any scale.
func WithPixelSize(px float64) ConvertOption { return func(c *convertConfig) { c.size = px } }

// ToPNG rasterizes an SVG mosaic with rsvg-convert.
func ToPNG(svg []byte, opts ...ConvertOption) ([]byte, error) {
	return rsvgConvert(svg, "png", opts)
}

// ToPDF converts an SVG mosaic to a single-page PDF with rsvg-convert.
func ToPDF(svg []byte, opts ...ConvertOption) ([]byte, error) {
	return rsvgConvert(svg, "pdf", opts)
}

func rsvgConvert(svg []byte, format string, opts []ConvertOption) ([]byte, error) {
	bin, err := exec.LookPath(rsvgBinary)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeUnsupported, err,
			"%s output needs rsvg-convert (brew install librsvg, or apt install librsvg2-bin)", format)
	}

	var cfg convertConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	args := []string{"-f", format}
	switch {
	case cfg.size > 0:
		px := strconv.FormatFloat(cfg.size, 'f', 0, 64)
		args = append(args, "-w", px, "-h", px)
	case cfg.scale > 0:
		args = append(args, "-z", strconv.FormatFloat(cfg.scale, 'f', -1, 64))
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = bytes.NewReader(svg)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "rsvg-convert: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	return out.Bytes(), nil
}
