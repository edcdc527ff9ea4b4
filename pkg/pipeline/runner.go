package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/circlepack/pkg/cache"
	"github.com/matzehuels/circlepack/pkg/colorize"
	"github.com/matzehuels/circlepack/pkg/observability"
	"github.com/matzehuels/circlepack/pkg/pack"
)

// Cache key types reported to observability hooks.
const (
	keyTypePack     = "pack"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the HTTP service use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Packing is a coloured packing together with its per-pass statistics.
// It is the unit stored in the pack cache.
type Packing struct {
	Circles  []colorize.Circle `json:"circles"`
	Accepted []int             `json:"accepted"`

	PackTime     time.Duration `json:"-"`
	ColorizeTime time.Duration `json:"-"`
}

// Execute runs the complete image → pack → colorize → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	result := &Result{
		ID:        uuid.NewString(),
		Seed:      seed,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.Attempts = pack.TotalAttempts(opts.Passes)

	logger.Debug("starting run",
		"id", result.ID,
		"width", opts.WidthValue(),
		"passes", len(opts.Passes),
		"spacing", opts.SpacingValue(),
		"sampler", opts.Sampler,
		"seed", seed)

	// Stage 1: Image
	imageStart := time.Now()
	sampler, imageHash, err := r.LoadImage(opts)
	if err != nil {
		return nil, err
	}
	result.Stats.ImageTime = time.Since(imageStart)
	if sampler != nil {
		w, h := sampler.Dimensions()
		logger.Info("loaded image",
			"width", w,
			"height", h,
			"duration", result.Stats.ImageTime)
	}

	// Stages 2 and 3: Pack and colorize
	packing, packHit, err := r.PackWithCacheInfo(ctx, opts, seed, sampler, imageHash)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	result.Circles = packing.Circles
	result.Placements = make([]pack.Placement, len(packing.Circles))
	for i, c := range packing.Circles {
		result.Placements[i] = c.Placement
	}
	result.Stats.Circles = len(packing.Circles)
	result.Stats.Accepted = packing.Accepted
	result.Stats.PackTime = packing.PackTime
	result.Stats.ColorizeTime = packing.ColorizeTime
	result.CacheInfo.PackHit = packHit

	logger.Info("packed circles",
		"circles", result.Stats.Circles,
		"attempts", result.Stats.Attempts,
		"cached", packHit,
		"duration", result.Stats.PackTime)

	// Stage 4: Render
	renderOpts := opts
	renderOpts.Seed = seed
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, packing.Circles, renderOpts, opts.Cacheable())
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadImage decodes the colour source, if any, and returns it with a content
// hash for cache keys. It returns a nil sampler when no image was supplied.
func (r *Runner) LoadImage(opts Options) (colorize.Sampler, string, error) {
	switch {
	case opts.ImageData != nil:
		s, err := colorize.DecodeBytes(opts.ImageData)
		if err != nil {
			return nil, "", err
		}
		return s, cache.Hash(opts.ImageData), nil
	case opts.Image != "":
		s, err := colorize.Open(opts.Image)
		if err != nil {
			return nil, "", err
		}
		var hash string
		if opts.Cacheable() {
			if data, err := os.ReadFile(opts.Image); err == nil {
				hash = cache.Hash(data)
			}
		}
		return s, hash, nil
	}
	return nil, "", nil
}

// PackWithCacheInfo packs and colours circles, consulting the cache for
// seeded runs, and reports whether the result came from cache.
func (r *Runner) PackWithCacheInfo(ctx context.Context, opts Options, seed uint64, sampler colorize.Sampler, imageHash string) (Packing, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Packing{}, false, err
	}
	r.applyLogger(&opts)

	cacheable := opts.Cacheable() && (imageHash != "" || sampler == nil)
	var cacheKey string
	if cacheable {
		cacheKey = r.Keyer.PackKey(opts.PackKeyOpts(imageHash))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached Packing
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypePack)
				return cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, keyTypePack)
	}

	packing, err := r.Pack(ctx, opts, seed, sampler)
	if err != nil {
		return Packing{}, false, err
	}

	if cacheable {
		if data, err := json.Marshal(packing); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLPacking); err == nil {
				observability.Cache().OnCacheSet(ctx, keyTypePack, len(data))
			} else {
				opts.Logger.Warn("cache write failed", "key_type", keyTypePack, "error", err)
			}
		}
	}
	return packing, false, nil
}

// Pack runs the schedule and colours the result without touching the cache.
func (r *Runner) Pack(ctx context.Context, opts Options, seed uint64, sampler colorize.Sampler) (Packing, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Packing{}, err
	}
	r.applyLogger(&opts)

	s, err := pack.SamplerByName(opts.Sampler)
	if err != nil {
		return Packing{}, err
	}
	packer := pack.New(opts.WidthValue(), opts.SpacingValue(),
		pack.WithSampler(s),
		pack.WithObserver(&passObserver{ctx: ctx, logger: opts.Logger, next: opts.Observer}),
	)

	observability.Pipeline().OnPackStart(ctx, opts.WidthValue(), len(opts.Passes))
	start := time.Now()
	res, err := packer.Run(ctx, opts.Passes, pack.NewRand(seed))
	packTime := time.Since(start)
	observability.Pipeline().OnPackComplete(ctx, len(res.Placements), packTime, err)
	if err != nil {
		return Packing{}, err
	}

	colorStart := time.Now()
	circles := colorize.Colorize(res.Placements, opts.WidthValue(), sampler)
	return Packing{
		Circles:      circles,
		Accepted:     res.Accepted,
		PackTime:     packTime,
		ColorizeTime: time.Since(colorStart),
	}, nil
}

// RenderWithCacheInfo generates artifacts, consulting the artifact cache when
// cacheable is set, and reports whether every artifact came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, circles []colorize.Circle, opts Options, cacheable bool) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}

	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	var layoutHash string
	if cacheable {
		layoutData, err := json.Marshal(circles)
		if err != nil {
			return nil, false, fmt.Errorf("serialize circles for cache key: %w", err)
		}
		layoutHash = cache.Hash(layoutData)

		// Try to get all formats from cache
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
				break
			}
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
			return artifacts, true, nil
		}
	}

	rendered, err := Render(circles, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		for format, data := range rendered {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
				observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
			}
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// passObserver forwards pass progress to the log, the metrics hooks and an
// optional caller-supplied observer.
type passObserver struct {
	ctx    context.Context
	logger *log.Logger
	next   pack.Observer
}

func (o *passObserver) OnPassStart(i int, p pack.Pass) {
	o.logger.Debug("pass started", "pass", i+1, "radius", p.Radius, "attempts", p.Attempts)
	if o.next != nil {
		o.next.OnPassStart(i, p)
	}
}

func (o *passObserver) OnPassComplete(i int, p pack.Pass, accepted int, elapsed time.Duration) {
	o.logger.Debug("pass complete", "pass", i+1, "radius", p.Radius, "accepted", accepted, "duration", elapsed)
	observability.Pipeline().OnPassComplete(o.ctx, i, p.Radius, accepted, elapsed)
	if o.next != nil {
		o.next.OnPassComplete(i, p, accepted, elapsed)
	}
}
