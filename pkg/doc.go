// Package pkg provides the core libraries for Circlepack circle mosaics.
//
// # Overview
//
// Circlepack fills a circular canvas with non-overlapping circles by random
// sampling, optionally colours every circle from a source image, and writes
// the result as SVG (plus JSON, PNG and PDF). The pkg directory is organized
// into:
//
//  1. [pack] - Placement of circles (rejection sampling over a pass schedule)
//  2. [colorize] - Fill assignment from a source image
//  3. [render] - Output formats (SVG, JSON, PNG, PDF)
//  4. [pipeline] - Orchestration (image → pack → colorize → render) with caching
//  5. [cache], [observability], [errors], [buildinfo] - Shared infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	pass schedule + seed        source image (optional)
//	         ↓                           ↓
//	    [pack] package  ──────→  [colorize] package
//	   (placements)               (circles with fills)
//	                                     ↓
//	                            [render] package
//	                                     ↓
//	                          SVG/JSON/PNG/PDF output
//
// # Quick Start
//
// Pack, colour and render by hand:
//
//	rng := pack.NewRand(7)
//	placements, _ := pack.Pack(ctx, 1000, pack.DefaultPasses(1000), 0.4, rng)
//	circles := colorize.Colorize(placements, 1000, nil)
//	svg := render.SVG(circles, 1000)
//
// Or run the whole pipeline with caching:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, _ := runner.Execute(ctx, pipeline.Options{Seed: 7, Image: "photo.jpg"})
//	os.WriteFile("mosaic.svg", res.Artifacts["svg"], 0644)
//
// # Reproducibility
//
// Every random draw comes from a generator seeded by the caller, so a seed
// and a schedule fully determine the packing. Seeded pipeline runs are cached
// under a hash of their inputs; unseeded runs draw a fresh seed and report it
// in the result.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/pack/...       # Specific package
//	go test -run Example ./...   # Examples only
//
// [pack]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/pack
// [colorize]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/colorize
// [render]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/circlepack/pkg/buildinfo
package pkg
