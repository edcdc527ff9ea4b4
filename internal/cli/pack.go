package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/observability"
	"github.com/matzehuels/circlepack/pkg/pack"
	"github.com/matzehuels/circlepack/pkg/pipeline"
)

// packFlags holds the command-line flags for the pack command.
// Only flags the user sets override values from --config.
type packFlags struct {
	width       float64
	passes      string
	spacing     float64
	image       string
	seed        uint64
	sampler     string
	formats     string
	output      string
	background  string
	size        float64
	config      string
	noCache     bool
	cacheURL    string
	metricsFile string
	tui         bool
}

func defaultPackFlags() *packFlags {
	return &packFlags{
		width:   pipeline.DefaultWidth,
		spacing: pack.DefaultSpacing(pipeline.DefaultWidth),
		sampler: pipeline.DefaultSampler,
		formats: pipeline.FormatSVG,
	}
}

// packCommand creates the pack command.
func (c *CLI) packCommand() *cobra.Command {
	f := defaultPackFlags()

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack circles into a disc and write the result",
		Long: `Pack non-overlapping circles into a circular canvas.

Passes run in order. Each pass draws random centres for circles of one radius
and keeps every candidate that fits inside the canvas without touching an
already placed circle. With --image, each circle takes the colour of the
pixel under its centre.

The SVG is written to stdout unless --output is given. Seeded runs are
cached locally so repeating them is instant.`,
		Example: `  circlepack pack > circles.svg
  circlepack pack -i photo.jpg --seed 7 -o mosaic.svg
  circlepack pack -w 400 -p 20,50,8,5000 -s 1 -f svg,json -o out
  circlepack pack --config circles.toml --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, run, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runPack(cmd.Context(), opts, run)
		},
	}

	f.register(cmd)
	return cmd
}

// register binds the flags to cmd.
func (f *packFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64VarP(&f.width, "width", "w", f.width, "canvas width and height")
	flags.StringVarP(&f.passes, "passes", "p", "", "pass schedule as radius,attempts,radius,attempts,... (default: eight-stage schedule scaled to width)")
	flags.Float64VarP(&f.spacing, "spacing", "s", f.spacing, "minimum gap between circles (default: 0.0004 x width)")
	flags.StringVarP(&f.image, "image", "i", "", "colour circles from this image")
	flags.Uint64Var(&f.seed, "seed", 0, "random seed; 0 draws a fresh seed and disables caching")
	flags.StringVar(&f.sampler, "sampler", f.sampler, "candidate sampler: rejection, polar")
	flags.StringVarP(&f.formats, "format", "f", f.formats, "output format(s): svg, json, png, pdf (comma-separated)")
	flags.StringVarP(&f.output, "output", "o", "", "output file, or base path for several formats (default: stdout)")
	flags.StringVar(&f.background, "background", "", "fill a background disc with this colour")
	flags.Float64Var(&f.size, "size", 0, "output size in pixels (SVG width/height, PNG/PDF dimensions)")
	flags.StringVar(&f.config, "config", "", "read options from a .toml or .yaml file")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	flags.StringVar(&f.cacheURL, "cache-url", "", "shared cache (redis://... or mongodb://...)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolVar(&f.tui, "tui", false, "show an interactive progress view")

	_ = cmd.RegisterFlagCompletionFunc("sampler", cobra.FixedCompletions(
		[]string{pack.SamplerRejection, pack.SamplerPolar}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{pipeline.FormatSVG, pipeline.FormatJSON, pipeline.FormatPNG, pipeline.FormatPDF}, cobra.ShellCompDirectiveNoFileComp))
}

// runSettings are the non-pipeline settings of one pack invocation.
type runSettings struct {
	output      string
	noCache     bool
	cacheURL    string
	metricsFile string
	tui         bool
}

// resolve merges the config file (if any) with explicitly set flags.
func (f *packFlags) resolve(cmd *cobra.Command) (pipeline.Options, runSettings, error) {
	var cfg fileConfig
	if f.config != "" {
		var err error
		if cfg, err = loadConfig(f.config); err != nil {
			return pipeline.Options{}, runSettings{}, err
		}
	}
	opts := cfg.Options
	run := runSettings{
		output:      cfg.Output,
		noCache:     f.noCache,
		cacheURL:    cfg.CacheURL,
		metricsFile: cfg.MetricsFile,
		tui:         f.tui,
	}

	changed := cmd.Flags().Changed
	if changed("width") {
		w := f.width
		opts.Width = &w
	}
	if changed("passes") {
		passes, err := pack.ParsePasses(f.passes)
		if err != nil {
			return opts, run, err
		}
		opts.Passes = passes
	}
	if changed("spacing") {
		s := f.spacing
		opts.Spacing = &s
	}
	if changed("image") {
		opts.Image = f.image
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("sampler") {
		opts.Sampler = f.sampler
	}
	if changed("format") {
		formats, err := pipeline.ParseFormats(f.formats)
		if err != nil {
			return opts, run, err
		}
		opts.Formats = formats
	}
	if changed("background") {
		opts.Background = f.background
	}
	if changed("size") {
		opts.Size = f.size
	}
	if changed("output") {
		run.output = f.output
	}
	if changed("cache-url") {
		run.cacheURL = f.cacheURL
	}
	if changed("metrics-file") {
		run.metricsFile = f.metricsFile
	}

	if err := perrors.ValidateOutputPath(run.output); err != nil {
		return opts, run, err
	}
	return opts, run, nil
}

// runPack executes the pipeline and writes its artifacts.
func (c *CLI) runPack(ctx context.Context, opts pipeline.Options, run runSettings) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, run.noCache, run.cacheURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var metrics *observability.Metrics
	if run.metricsFile != "" {
		metrics = observability.NewMetrics()
		metrics.Register()
		defer observability.Reset()
	}

	opts.Logger = logger
	prog := newProgress(logger)

	var res *pipeline.Result
	switch {
	case run.tui:
		res, err = runWithTUI(ctx, runner, opts)
	case interactive():
		spinner := newSpinnerWithContext(ctx, "Packing circles...")
		opts.Observer = spinner
		spinner.Start()
		res, err = runner.Execute(ctx, opts)
		spinner.Stop()
	default:
		res, err = runner.Execute(ctx, opts)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Packed %d circles", res.Stats.Circles))

	if metrics != nil {
		if err := metrics.WriteTextfile(run.metricsFile); err != nil {
			printWarning("Could not write metrics: %v", err)
		}
	}

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: res.Artifacts,
		formats:   opts.Formats,
		output:    run.output,
		stdout:    os.Stdout,
	})
	if err != nil {
		return err
	}

	printStats(res.Stats.Circles, len(res.Stats.Accepted), res.Seed, res.CacheInfo.PackHit)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// =============================================================================
// Output
// =============================================================================

type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	output    string
	stdout    io.Writer
}

// writeArtifacts writes rendered formats and returns the files it created.
//
// A single format goes to output, or to stdout when output is empty or "-".
// Several formats need an output base path; each is written to base.<format>.
func writeArtifacts(p artifactWriteParams) ([]string, error) {
	formats := p.formats
	if len(formats) == 0 {
		formats = []string{pipeline.FormatSVG}
	}
	toStdout := p.output == "" || p.output == "-"

	if len(formats) == 1 {
		data := p.artifacts[formats[0]]
		if toStdout {
			_, err := p.stdout.Write(data)
			return nil, err
		}
		if err := os.WriteFile(p.output, data, 0644); err != nil {
			return nil, err
		}
		return []string{p.output}, nil
	}

	if toStdout {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "writing %d formats needs --output", len(formats))
	}
	base := basePath(p.output)
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := base + "." + format
		if err := os.WriteFile(path, p.artifacts[format], 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// basePath strips a known format extension from output.
func basePath(output string) string {
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
