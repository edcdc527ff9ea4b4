// Package pipeline provides the image → pack → colorize → render pipeline.
//
// The CLI and the HTTP service both drive packings through a [Runner] so that
// defaults, validation and caching behave the same at every entry point.
//
// # Stages
//
//  1. Image: decode the optional source image into a colour sampler
//  2. Pack: run the pass schedule (seeded runs are cached)
//  3. Colorize: assign every placement a fill
//  4. Render: produce the requested formats (SVG, JSON, PNG, PDF)
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Image:   "photo.jpg",
//	    Seed:    7,
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/circlepack/pkg/cache"
	"github.com/matzehuels/circlepack/pkg/colorize"
	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/pack"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and HTTP service
// =============================================================================

const (
	// DefaultWidth is the default canvas width.
	DefaultWidth = pack.DefaultWidth

	// DefaultSampler is the default candidate sampler.
	DefaultSampler = pack.SamplerRejection

	// DefaultPNGScale is the rasterization scale for PNG output.
	DefaultPNGScale = 2.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one packing run.
// It can be loaded from JSON requests and TOML or YAML config files.
type Options struct {
	// Packing options
	Width   *float64    `json:"width,omitempty" toml:"width" yaml:"width" validate:"omitempty,gt=0"`
	Passes  []pack.Pass `json:"passes,omitempty" toml:"passes" yaml:"passes"`
	Spacing *float64    `json:"spacing,omitempty" toml:"spacing" yaml:"spacing" validate:"omitempty,gte=0"`
	Seed    uint64      `json:"seed,omitempty" toml:"seed" yaml:"seed"`
	Sampler string      `json:"sampler,omitempty" toml:"sampler" yaml:"sampler" validate:"omitempty,oneof=rejection polar"`

	// Colour source; ImageData takes precedence over Image when both are set.
	Image     string `json:"image,omitempty" toml:"image" yaml:"image"`
	ImageData []byte `json:"-" toml:"-" yaml:"-" validate:"-"`

	// Render options
	Formats    []string `json:"formats,omitempty" toml:"formats" yaml:"formats" validate:"dive,oneof=svg png pdf json"`
	Background string   `json:"background,omitempty" toml:"background" yaml:"background" validate:"max=64"`
	Size       float64  `json:"size,omitempty" toml:"size" yaml:"size" validate:"gte=0"`

	// Runtime options (not serialized)
	Logger   *log.Logger   `json:"-" toml:"-" yaml:"-" validate:"-"`
	Observer pack.Observer `json:"-" toml:"-" yaml:"-" validate:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// ID identifies this run in logs and API responses.
	ID string

	// Seed is the seed the run used. Unseeded runs record the seed that was
	// drawn for them so they can be reproduced.
	Seed uint64

	// Placements are the accepted circles in acceptance order.
	Placements []pack.Placement

	// Circles are the placements with their fills.
	Circles []colorize.Circle

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Circles      int
	Accepted     []int // per pass
	Attempts     int
	ImageTime    time.Duration
	PackTime     time.Duration
	ColorizeTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	PackHit   bool // Whether the coloured packing came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return perrors.New(perrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list and validates it.
func ParseFormats(s string) ([]string, error) {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	return formats, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := validate.Struct(o); err != nil {
		return validationError(err)
	}

	if o.Width == nil {
		w := DefaultWidth
		o.Width = &w
	}
	if len(o.Passes) == 0 {
		o.Passes = pack.DefaultPasses(*o.Width)
	}
	if o.Spacing == nil {
		s := pack.DefaultSpacing(*o.Width)
		o.Spacing = &s
	}
	if o.Sampler == "" {
		o.Sampler = DefaultSampler
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if err := pack.Validate(*o.Width, o.Passes, *o.Spacing); err != nil {
		return err
	}
	if o.Image != "" && o.ImageData == nil {
		if err := perrors.ValidateImagePath(o.Image); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

// WidthValue returns the configured width, or DefaultWidth.
func (o *Options) WidthValue() float64 {
	if o.Width != nil {
		return *o.Width
	}
	return DefaultWidth
}

// SpacingValue returns the configured spacing, or the default for the width.
func (o *Options) SpacingValue() float64 {
	if o.Spacing != nil {
		return *o.Spacing
	}
	return pack.DefaultSpacing(o.WidthValue())
}

// HasImage reports whether a colour source was supplied.
func (o *Options) HasImage() bool {
	return o.Image != "" || o.ImageData != nil
}

// Cacheable reports whether the run is reproducible and may be cached.
func (o *Options) Cacheable() bool {
	return o.Seed != 0
}

// PackKeyOpts returns cache key options for a coloured packing.
func (o *Options) PackKeyOpts(imageHash string) cache.PackKeyOpts {
	return cache.PackKeyOpts{
		Width:     o.WidthValue(),
		Passes:    o.Passes,
		Spacing:   o.SpacingValue(),
		Sampler:   o.Sampler,
		Seed:      o.Seed,
		ImageHash: imageHash,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering. JSON
// keys also cover the run metadata the document records.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format:     format,
		Width:      o.WidthValue(),
		Background: o.Background,
		Size:       o.Size,
	}
	if format == FormatJSON {
		opts.Seed = o.Seed
		opts.Passes = o.Passes
		opts.Spacing = o.SpacingValue()
		opts.Sampler = o.Sampler
		opts.Image = o.Image
	}
	return opts
}

// validationError maps validator failures onto error codes.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid options")
	}
	fe := verrs[0]
	field := fe.Field()
	switch {
	case strings.HasPrefix(field, "Formats"):
		return perrors.New(perrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", fe.Value())
	case field == "Sampler":
		return perrors.New(perrors.ErrCodeInvalidSampler, "unknown sampler %q (must be one of: rejection, polar)", fe.Value())
	case field == "Width":
		return perrors.New(perrors.ErrCodeInvalidGeometry, "width must be positive (got %v)", fe.Value())
	case field == "Spacing":
		return perrors.New(perrors.ErrCodeInvalidGeometry, "%s must not be negative (got %v)", strings.ToLower(field), fe.Value())
	}
	return perrors.New(perrors.ErrCodeInvalidInput, "invalid %s: failed %q check", strings.ToLower(field), fe.Tag())
}
