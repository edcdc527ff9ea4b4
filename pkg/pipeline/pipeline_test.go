package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/circlepack/pkg/cache"
	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/pack"
	"github.com/matzehuels/circlepack/pkg/render"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_FORMAT", tt.format, perrors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats("svg, json,,png")
	if err != nil {
		t.Fatalf("ParseFormats error: %v", err)
	}
	if strings.Join(got, ",") != "svg,json,png" {
		t.Errorf("ParseFormats = %v", got)
	}

	if _, err := ParseFormats("svg,gif"); !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormats(svg,gif) error = %v, want INVALID_FORMAT", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults error: %v", err)
	}

	if opts.WidthValue() != DefaultWidth {
		t.Errorf("Width = %v, want %v", opts.WidthValue(), DefaultWidth)
	}
	if len(opts.Passes) != 8 {
		t.Errorf("len(Passes) = %d, want 8", len(opts.Passes))
	}
	if opts.SpacingValue() != 0.4 {
		t.Errorf("Spacing = %v, want 0.4", opts.SpacingValue())
	}
	if opts.Sampler != pack.SamplerRejection {
		t.Errorf("Sampler = %q, want rejection", opts.Sampler)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discarding logger")
	}
}

func TestValidateAndSetDefaultsKeepsZeroSpacing(t *testing.T) {
	zero := 0.0
	opts := Options{Width: floatPtr(100), Spacing: &zero}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.SpacingValue() != 0 {
		t.Errorf("explicit zero spacing replaced by %v", opts.SpacingValue())
	}
	// Default passes scale with the configured width.
	if want := pack.DefaultPasses(100)[0].Radius; opts.Passes[0].Radius != want {
		t.Errorf("first radius = %v, want %v", opts.Passes[0].Radius, want)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name string
		opts Options
		code perrors.Code
	}{
		{"unknown sampler", Options{Sampler: "hex"}, perrors.ErrCodeInvalidSampler},
		{"unknown format", Options{Formats: []string{"svg", "gif"}}, perrors.ErrCodeInvalidFormat},
		{"negative width", Options{Width: floatPtr(-1)}, perrors.ErrCodeInvalidGeometry},
		{"explicit zero width", Options{Width: floatPtr(0)}, perrors.ErrCodeInvalidGeometry},
		{"negative spacing", Options{Spacing: &neg}, perrors.ErrCodeInvalidGeometry},
		{"radius too large", Options{Width: floatPtr(100), Passes: []pack.Pass{{Radius: 50, Attempts: 1}}}, perrors.ErrCodeInvalidGeometry},
		{"negative attempts", Options{Width: floatPtr(100), Passes: []pack.Pass{{Radius: 5, Attempts: -1}}}, perrors.ErrCodeInvalidGeometry},
		{"bad image path", Options{Image: "photo\x00.png"}, perrors.ErrCodeInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !perrors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }

func smallOptions(seed uint64, formats ...string) Options {
	zero := 0.0
	return Options{
		Width:   floatPtr(100),
		Passes:  []pack.Pass{{Radius: 10, Attempts: 50}, {Radius: 4, Attempts: 200}},
		Spacing: &zero,
		Seed:    seed,
		Formats: formats,
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), smallOptions(7, FormatSVG, FormatJSON))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if res.ID == "" {
		t.Error("Result.ID should be set")
	}
	if res.Seed != 7 {
		t.Errorf("Result.Seed = %d, want 7", res.Seed)
	}
	if len(res.Circles) == 0 || len(res.Circles) != len(res.Placements) {
		t.Fatalf("circles = %d, placements = %d", len(res.Circles), len(res.Placements))
	}

	sum := 0
	for _, n := range res.Stats.Accepted {
		sum += n
	}
	if sum != res.Stats.Circles || len(res.Stats.Accepted) != 2 {
		t.Errorf("Accepted = %v does not add up to %d circles", res.Stats.Accepted, res.Stats.Circles)
	}
	if res.Stats.Attempts != 250 {
		t.Errorf("Attempts = %d, want 250", res.Stats.Attempts)
	}

	for i, c := range res.Circles {
		if c.Fill != "black" {
			t.Errorf("circle %d fill = %q, want black without an image", i, c.Fill)
		}
	}

	svg := string(res.Artifacts[FormatSVG])
	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`) {
		t.Errorf("unexpected svg header: %.80s", svg)
	}
	if n := strings.Count(svg, "<circle "); n != len(res.Circles) {
		t.Errorf("svg has %d circles, want %d", n, len(res.Circles))
	}

	doc, err := render.ReadJSON(res.Artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if doc.Seed != 7 || len(doc.Circles) != len(res.Circles) || len(doc.Passes) != 2 {
		t.Errorf("json document = seed %d, %d circles, %d passes", doc.Seed, len(doc.Circles), len(doc.Passes))
	}
}

func TestExecuteDeterministic(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	a, err := r.Execute(context.Background(), smallOptions(99))
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Execute(context.Background(), smallOptions(99))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Artifacts[FormatSVG], b.Artifacts[FormatSVG]) {
		t.Error("same seed should produce identical SVG")
	}
	if a.ID == b.ID {
		t.Error("run IDs should differ")
	}
}

func TestExecuteUnseededRecordsSeed(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), smallOptions(0))
	if err != nil {
		t.Fatal(err)
	}

	replay, err := r.Execute(context.Background(), smallOptions(res.Seed))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res.Artifacts[FormatSVG], replay.Artifacts[FormatSVG]) {
		t.Error("replaying the recorded seed should reproduce the run")
	}
}

func TestExecuteCaching(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	first, err := r.Execute(ctx, smallOptions(5, FormatSVG))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.PackHit || first.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}

	second, err := r.Execute(ctx, smallOptions(5, FormatSVG))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.PackHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want both hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached SVG differs from computed SVG")
	}
	if len(second.Stats.Accepted) != 2 {
		t.Errorf("cached Accepted = %v", second.Stats.Accepted)
	}
}

func TestExecuteCachedJSONKeepsRunMetadata(t *testing.T) {
	r := NewRunner(newMemCache(), nil, nil)
	ctx := context.Background()

	// The zero-attempt pass draws nothing, so both runs place the same circles.
	short := smallOptions(5, FormatJSON, FormatSVG)
	short.Passes = []pack.Pass{{Radius: 10, Attempts: 50}}
	long := smallOptions(5, FormatJSON, FormatSVG)
	long.Passes = []pack.Pass{{Radius: 10, Attempts: 50}, {Radius: 3, Attempts: 0}}

	first, err := r.Execute(ctx, short)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, long)
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheInfo.PackHit {
		t.Fatal("a different schedule must not reuse the packing")
	}
	if len(first.Circles) != len(second.Circles) {
		t.Fatalf("circle counts differ: %d vs %d", len(first.Circles), len(second.Circles))
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("identical circles should render the same SVG")
	}

	doc, err := render.ReadJSON(second.Artifacts[FormatJSON])
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Passes) != 2 {
		t.Errorf("JSON passes = %v, want the second run's schedule", doc.Passes)
	}
}

func TestExecuteUnseededNotCached(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)

	if _, err := r.Execute(context.Background(), smallOptions(0)); err != nil {
		t.Fatal(err)
	}
	if n := c.len(); n != 0 {
		t.Errorf("unseeded run wrote %d cache entries", n)
	}
}

func TestExecuteImageData(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	opts := smallOptions(3)
	opts.ImageData = buf.Bytes()
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for i, c := range res.Circles {
		if c.Fill != "rgba(10,20,30,255)" {
			t.Fatalf("circle %d fill = %q", i, c.Fill)
		}
	}
}

func TestExecuteImageErrorsBeforePacking(t *testing.T) {
	obs := &countingObserver{}
	opts := smallOptions(1)
	opts.Image = "/nonexistent/source.png"
	opts.Observer = obs

	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if !perrors.Is(err, perrors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
	if obs.starts != 0 {
		t.Error("packing should not start when the image cannot be loaded")
	}

	opts.Image = ""
	opts.ImageData = []byte("not an image")
	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts); !perrors.Is(err, perrors.ErrCodeImageDecode) {
		t.Errorf("error = %v, want IMAGE_DECODE", err)
	}
}

func TestExecuteObserver(t *testing.T) {
	obs := &countingObserver{}
	opts := smallOptions(1)
	opts.Observer = obs

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if obs.starts != 2 || obs.completes != 2 {
		t.Errorf("observer saw %d starts, %d completes; want 2 each", obs.starts, obs.completes)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil, nil, nil).Execute(ctx, smallOptions(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRenderFromJSON(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := smallOptions(11, FormatSVG, FormatJSON)
	opts.Background = "#eee"
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	again, err := RenderFromJSON(res.Artifacts[FormatJSON], Options{Background: "#eee"})
	if err != nil {
		t.Fatalf("RenderFromJSON error: %v", err)
	}
	if !bytes.Equal(again[FormatSVG], res.Artifacts[FormatSVG]) {
		t.Error("re-rendered SVG differs from original")
	}
}

type countingObserver struct {
	starts, completes int
}

func (o *countingObserver) OnPassStart(int, pack.Pass) { o.starts++ }
func (o *countingObserver) OnPassComplete(int, pack.Pass, int, time.Duration) {
	o.completes++
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

var _ cache.Cache = (*memCache)(nil)
