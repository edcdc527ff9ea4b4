package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/pipeline"
)

// renderCommand creates the render command for re-rendering a JSON export.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		opts       pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "render [packing.json]",
		Short: "Render a packing exported with --format json",
		Long: `Render a packing exported with 'pack --format json'.

The JSON file holds every circle with its fill, so rendering it again needs
no packing. Use this to produce PNG or PDF later, or to try a different
background.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := pipeline.ParseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.Formats = formats
			if err := perrors.ValidateOutputPath(output); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or base path for several formats (default: stdout)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", pipeline.FormatSVG, "output format(s): svg, json, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&opts.Background, "background", "", "fill a background disc with this colour")
	cmd.Flags().Float64Var(&opts.Size, "size", 0, "set SVG width/height attributes in pixels")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string) error {
	logger := loggerFromContext(ctx)

	data, err := os.ReadFile(input)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeFileNotFound, err, "read %s", input)
	}

	artifacts, err := pipeline.RenderFromJSON(data, opts)
	if err != nil {
		return fmt.Errorf("render %s: %w", input, err)
	}
	logger.Debug("rendered packing", "input", input, "formats", opts.Formats)

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   opts.Formats,
		output:    output,
		stdout:    os.Stdout,
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		printFile(p)
	}
	return nil
}
