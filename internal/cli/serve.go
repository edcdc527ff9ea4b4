package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/circlepack/internal/server"
	"github.com/matzehuels/circlepack/pkg/observability"
)

// serveFlags holds the command-line flags for the serve command.
type serveFlags struct {
	addr        string
	noCache     bool
	cacheURL    string
	maxAttempts int
	maxBody     int64
	timeout     time.Duration
	noMetrics   bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	f := serveFlags{
		addr:        ":8080",
		maxAttempts: server.DefaultMaxAttempts,
		maxBody:     server.DefaultMaxBody,
		timeout:     server.DefaultTimeout,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve packings over HTTP",
		Long: `Run an HTTP service that packs circles on request.

POST a JSON body with the same fields as a config file to /v1/pack. The
response format is chosen by the "format" field, the ?format= query or the
Accept header. Source images are sent inline as base64 in "image_data".
Prometheus metrics are exposed on /metrics.`,
		Example: `  circlepack serve --addr :9000
  circlepack serve --cache-url redis://localhost:6379/0
  curl -d '{"seed":7}' localhost:8080/v1/pack > circles.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", f.addr, "listen address")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	flags.StringVar(&f.cacheURL, "cache-url", "", "shared cache (redis://... or mongodb://...)")
	flags.IntVar(&f.maxAttempts, "max-attempts", f.maxAttempts, "largest total attempts a request may schedule (0 = unlimited)")
	flags.Int64Var(&f.maxBody, "max-body", f.maxBody, "largest request body in bytes")
	flags.DurationVar(&f.timeout, "timeout", f.timeout, "per-request time limit")
	flags.BoolVar(&f.noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, f serveFlags) error {
	ctx := cmd.Context()

	runner, err := c.newRunner(ctx, f.noCache, f.cacheURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := []server.Option{
		server.WithMaxAttempts(f.maxAttempts),
		server.WithMaxBody(f.maxBody),
		server.WithTimeout(f.timeout),
	}
	if !f.noMetrics {
		metrics := observability.NewMetrics()
		metrics.Register()
		defer observability.Reset()
		opts = append(opts, server.WithMetrics(metrics.Handler()))
	}

	return server.New(runner, c.Logger, opts...).ListenAndServe(ctx, f.addr)
}
