// Package cache stores computed packings and rendered artifacts.
//
// A packing is only reproducible when its random source is seeded, so the
// pipeline caches seeded runs only. Keys are derived from every input that
// affects the result (canvas width, pass schedule, spacing, sampler, seed and
// the source image hash) by a [Keyer].
//
// Backends:
//   - [FileCache]: snappy-compressed files under the user's cache directory (CLI default)
//   - [RedisCache]: shared cache for the HTTP service
//   - [MongoCache]: shared cache backed by a MongoDB collection
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/circlepack/pkg/pack"
)

// Cache entry lifetimes.
const (
	// TTLPacking is how long a seeded packing is kept.
	TTLPacking = 30 * 24 * time.Hour

	// TTLArtifact is how long a rendered artifact is kept.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// PackKeyOpts holds every input that determines a packing.
type PackKeyOpts struct {
	Width     float64     `json:"width"`
	Passes    []pack.Pass `json:"passes"`
	Spacing   float64     `json:"spacing"`
	Sampler   string      `json:"sampler"`
	Seed      uint64      `json:"seed"`
	ImageHash string      `json:"image_hash,omitempty"`
}

// ArtifactKeyOpts holds the render settings for one output format.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Width      float64 `json:"width"`
	Background string  `json:"background,omitempty"`
	Size       float64 `json:"size,omitempty"`

	// Run metadata embedded in JSON documents; empty for other formats.
	Seed    uint64      `json:"seed,omitempty"`
	Passes  []pack.Pass `json:"passes,omitempty"`
	Spacing float64     `json:"spacing,omitempty"`
	Sampler string      `json:"sampler,omitempty"`
	Image   string      `json:"image,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// PackKey returns the key of a coloured packing.
	PackKey(opts PackKeyOpts) string

	// ArtifactKey returns the key of a rendered artifact for a packing.
	ArtifactKey(packHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PackKey implements [Keyer].
func (DefaultKeyer) PackKey(opts PackKeyOpts) string {
	return hashKey("pack", opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(packHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", packHash, opts)
}
