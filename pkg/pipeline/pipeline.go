// Package pipeline provides the load → layout → compose → render pipeline
// shared by the CLI commands.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: read the root manifest and fetch its related workflows
//  2. Layout: build each workflow's graph and place its nodes
//  3. Compose: build node visuals, align step columns and stack workflows
//  4. Render: export the composition as DOT, SVG, PNG, PDF or JSON
//
// Layouts are cached by the content digest of every loaded manifest
// together with the layout configuration, so an unchanged bundle skips
// placement entirely.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "examples/manifest/pipeline.json",
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	bundle, err := runner.Load(ctx, opts)
//	l, err := runner.Layout(ctx, bundle, opts)
//	comp, err := runner.Compose(ctx, l, runner.NewBuilder(opts), opts)
//	artifacts, err := runner.Render(ctx, comp, opts)
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/visual"
)

// DefaultPNGScale is the default rsvg-convert zoom for PNG output.
const DefaultPNGScale = 2.0

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// Options contains all configuration for a pipeline run.
type Options struct {
	// Source is the root manifest: a file path or an http(s) URL.
	Source  string `json:"source"`
	Refresh bool   `json:"refresh,omitempty"`

	// Render options
	Formats      []string `json:"formats,omitempty"`
	ShowAllEdges bool     `json:"show_all_edges,omitempty"`
	Detailed     bool     `json:"detailed,omitempty"`
	PNGScale     float64  `json:"png_scale,omitempty"`

	// Runtime options (not serialized)
	Config *config.Config `json:"-"`
	Logger *log.Logger    `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Bundle      *manifest.Bundle
	Layout      *graph.Layout
	Composition *compose.Composition
	// Builder produced the composition's visuals; scenes reuse it for edges.
	Builder   *visual.Builder
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Workflows   int
	NodeCount   int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	ComposeTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf, dot, json)", format)
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

// ValidateAndSetDefaults checks required fields and applies defaults for
// the full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the source and applies runtime defaults.
func (o *Options) ValidateForLoad() error {
	if o.Source == "" {
		return fmt.Errorf("source is required")
	}
	o.SetDefaults()
	return nil
}

// SetDefaults fills in configuration and logger defaults.
func (o *Options) SetDefaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates formats and applies render defaults.
func (o *Options) ValidateForRender() error {
	o.SetDefaults()
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.PNGScale <= 0 {
		o.PNGScale = DefaultPNGScale
	}
	return ValidateFormats(o.Formats)
}

// LayoutKeyOpts returns cache key options for layout computation. The
// layout configuration and the theme's phases both change the result.
func (o *Options) LayoutKeyOpts(related int) cache.LayoutKeyOpts {
	data, _ := json.Marshal(struct {
		Layout config.Layout
		Phases map[string]string
	}{o.Config.Layout, o.Config.Theme.PhaseColors})
	return cache.LayoutKeyOpts{
		ConfigHash: cache.Hash(data),
		Related:    related,
	}
}
