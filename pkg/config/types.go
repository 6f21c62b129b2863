// Package config holds the typed configuration consumed by the layout engine,
// viewport, level-of-detail controller, spatial index, visual builders and
// caches.
//
// Values are resolved once at startup (defaults, then an optional YAML file,
// then PROVGRAPH_* environment overrides) and passed explicitly into
// constructors. Nothing in the core reads styling or environment state at
// runtime.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Layout   Layout   `koanf:"layout" yaml:"layout"`
	Viewport Viewport `koanf:"viewport" yaml:"viewport"`
	LOD      LOD      `koanf:"lod" yaml:"lod"`
	Spatial  Spatial  `koanf:"spatial" yaml:"spatial"`
	Theme    Theme    `koanf:"theme" yaml:"theme"`
	Cache    Cache    `koanf:"cache" yaml:"cache"`
	Fetch    Fetch    `koanf:"fetch" yaml:"fetch"`
}

// Layout configures the grouped left-to-right placement. Distances are in
// layout units where the main timeline sits at TimelineY.
type Layout struct {
	HorizontalGap      float64  `koanf:"horizontal_gap" yaml:"horizontal_gap"`
	VerticalGap        float64  `koanf:"vertical_gap" yaml:"vertical_gap"`
	TimelineY          float64  `koanf:"timeline_y" yaml:"timeline_y"`
	BoundsPadding      float64  `koanf:"bounds_padding" yaml:"bounds_padding"`
	AttestationOffset  float64  `koanf:"attestation_offset" yaml:"attestation_offset"`
	SupportingPriority []string `koanf:"supporting_priority" yaml:"supporting_priority"`

	// WorldScale converts layout units to world units.
	WorldScale float64 `koanf:"world_scale" yaml:"world_scale"`
	NodeWidth  float64 `koanf:"node_width" yaml:"node_width"`
	NodeHeight float64 `koanf:"node_height" yaml:"node_height"`
	// BranchSpacing is the vertical world distance between stacked workflows.
	BranchSpacing float64 `koanf:"branch_spacing" yaml:"branch_spacing"`
	// LabelReserve is subtracted from a child's top edge when drawing connectors.
	LabelReserve float64 `koanf:"label_reserve" yaml:"label_reserve"`
}

// Viewport configures pan/zoom behavior.
type Viewport struct {
	MinZoom        float64       `koanf:"min_zoom" yaml:"min_zoom"`
	MaxZoom        float64       `koanf:"max_zoom" yaml:"max_zoom"`
	MarginTop      float64       `koanf:"margin_top" yaml:"margin_top"`
	MarginBottom   float64       `koanf:"margin_bottom" yaml:"margin_bottom"`
	PanelWidth     float64       `koanf:"panel_width" yaml:"panel_width"`
	CenterDuration time.Duration `koanf:"center_duration" yaml:"center_duration"`
	ResizeDebounce time.Duration `koanf:"resize_debounce" yaml:"resize_debounce"`
}

// LOD configures view-level thresholds and transitions.
type LOD struct {
	// OverviewThreshold separates content-session (below) from workflow-overview.
	OverviewThreshold float64 `koanf:"overview_threshold" yaml:"overview_threshold"`
	// DetailThreshold separates workflow-overview (below) from workflow-detail.
	DetailThreshold   float64       `koanf:"detail_threshold" yaml:"detail_threshold"`
	FadeDuration      time.Duration `koanf:"fade_duration" yaml:"fade_duration"`
	TextModeThreshold float64       `koanf:"text_mode_threshold" yaml:"text_mode_threshold"`
}

// Spatial configures the uniform grid and culling.
type Spatial struct {
	CellSize   float64 `koanf:"cell_size" yaml:"cell_size"`
	CullMargin float64 `koanf:"cull_margin" yaml:"cull_margin"`
}

// Theme maps phases and node kinds to color tokens.
type Theme struct {
	Name        string            `koanf:"name" yaml:"name"`
	PhaseColors map[string]string `koanf:"phase_colors" yaml:"phase_colors"`
	KindColors  map[string]string `koanf:"kind_colors" yaml:"kind_colors"`
	Background  string            `koanf:"background" yaml:"background"`
	EdgeColor   string            `koanf:"edge_color" yaml:"edge_color"`
	GateColor   string            `koanf:"gate_color" yaml:"gate_color"`
	// TextureCacheSize caps the rasterized texture cache (0 = unbounded).
	TextureCacheSize int `koanf:"texture_cache_size" yaml:"texture_cache_size"`
}

// PhaseColor returns the color token of phase.
func (t Theme) PhaseColor(phase string) (string, bool) {
	c, ok := t.PhaseColors[phase]
	return c, ok
}

// Cache backends.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// Cache configures the cache used for fetched manifests, icons and layouts.
type Cache struct {
	Backend   string        `koanf:"backend" yaml:"backend"`
	Dir       string        `koanf:"dir" yaml:"dir"`
	RedisAddr string        `koanf:"redis_addr" yaml:"redis_addr"`
	TTL       time.Duration `koanf:"ttl" yaml:"ttl"`
}

// Fetch configures related-manifest and icon fetching.
type Fetch struct {
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	Concurrency int           `koanf:"concurrency" yaml:"concurrency"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Layout: Layout{
			HorizontalGap:      0.2,
			VerticalGap:        0.12,
			TimelineY:          0.5,
			BoundsPadding:      0.05,
			AttestationOffset:  0.12,
			SupportingPriority: []string{"Code", "Model", "Config", "Parameters", "Prompt", "Dataset", "Other"},
			WorldScale:         1000,
			NodeWidth:          160,
			NodeHeight:         56,
			BranchSpacing:      240,
			LabelReserve:       24,
		},
		Viewport: Viewport{
			MinZoom:        0.05,
			MaxZoom:        4,
			MarginTop:      80,
			MarginBottom:   40,
			PanelWidth:     360,
			CenterDuration: 400 * time.Millisecond,
			ResizeDebounce: 100 * time.Millisecond,
		},
		LOD: LOD{
			OverviewThreshold: 0.25,
			DetailThreshold:   0.6,
			FadeDuration:      150 * time.Millisecond,
			TextModeThreshold: 0.45,
		},
		Spatial: Spatial{
			CellSize:   512,
			CullMargin: 128,
		},
		Theme: Theme{
			Name: "light",
			PhaseColors: map[string]string{
				"ingest":    "#4c8bf5",
				"transform": "#8e6cf0",
				"train":     "#f08a24",
				"evaluate":  "#2bb673",
				"publish":   "#e0457b",
			},
			KindColors: map[string]string{
				"asset":       "#ffffff",
				"action":      "#f4f5f7",
				"attestation": "#fff7e0",
			},
			Background:       "#fafafa",
			EdgeColor:        "#9aa0a6",
			GateColor:        "#c99700",
			TextureCacheSize: 512,
		},
		Cache: Cache{
			Backend: CacheBackendFile,
			TTL:     24 * time.Hour,
		},
		Fetch: Fetch{
			Timeout:     10 * time.Second,
			Concurrency: 8,
		},
	}
}
