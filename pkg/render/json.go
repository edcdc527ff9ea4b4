package render

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/circlepack/pkg/colorize"
	"github.com/matzehuels/circlepack/pkg/pack"
)

// JSONOption configures JSON rendering via [JSON].
type JSONOption func(*Document)

// WithJSONSpacing records the spacing used for the packing.
func WithJSONSpacing(s float64) JSONOption { return func(d *Document) { d.Spacing = s } }

// WithJSONSeed records the random seed, enabling reproducible re-packing.
func WithJSONSeed(seed uint64) JSONOption { return func(d *Document) { d.Seed = seed } }

// WithJSONPasses records the pass schedule.
func WithJSONPasses(p []pack.Pass) JSONOption { return func(d *Document) { d.Passes = p } }

// WithJSONSampler records the candidate sampler name.
func WithJSONSampler(name string) JSONOption { return func(d *Document) { d.Sampler = name } }

// WithJSONImage records the source image name used for colouring.
func WithJSONImage(name string) JSONOption { return func(d *Document) { d.Image = name } }

// Document is the JSON form of a packing.
type Document struct {
	Width   float64           `json:"width"`
	Spacing float64           `json:"spacing,omitempty"`
	Seed    uint64            `json:"seed,omitempty"`
	Sampler string            `json:"sampler,omitempty"`
	Image   string            `json:"image,omitempty"`
	Passes  []pack.Pass       `json:"passes,omitempty"`
	Circles []colorize.Circle `json:"circles"`
}

// JSON exports circles and the parameters that produced them as
// pretty-printed JSON.
func JSON(circles []colorize.Circle, width float64, opts ...JSONOption) ([]byte, error) {
	doc := Document{Width: width, Circles: circles}
	if doc.Circles == nil {
		doc.Circles = []colorize.Circle{}
	}
	for _, opt := range opts {
		opt(&doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ReadJSON parses a document produced by [JSON].
func ReadJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse packing json: %w", err)
	}
	if doc.Width <= 0 {
		return Document{}, fmt.Errorf("parse packing json: missing width")
	}
	return doc, nil
}
