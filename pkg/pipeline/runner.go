package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/visual"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, fetcher and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache cache.Cache
	Keyer cache.Keyer
	// Fetcher overrides source resolution. When nil, sources are read from
	// the root manifest's directory or over HTTP.
	Fetcher manifest.Fetcher
	Logger  *log.Logger
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

// Execute runs the complete load → layout → compose → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	res, err := r.Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}

	renderStart := time.Now()
	artifacts, err := r.Render(ctx, res.Composition, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", res.Stats.RenderTime)
	return res, nil
}

// Prepare runs every stage except rendering. Interactive commands use it to
// obtain a composition for a scene.
func (r *Runner) Prepare(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	res := &Result{Artifacts: make(map[string][]byte)}

	loadStart := time.Now()
	b, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Bundle = b
	res.Stats.LoadTime = time.Since(loadStart)
	res.Stats.Workflows = 1 + len(b.Related)
	r.Logger.Info("loaded manifests",
		"workflows", res.Stats.Workflows,
		"failed", len(b.Failures),
		"duration", res.Stats.LoadTime)

	layoutStart := time.Now()
	l, hit, err := r.LayoutWithCacheInfo(ctx, b, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Layout = l
	res.CacheInfo.LayoutHit = hit
	res.Stats.LayoutTime = time.Since(layoutStart)
	res.Stats.NodeCount = l.NodeCount()
	r.Logger.Info("computed layout",
		"nodes", res.Stats.NodeCount,
		"cached", hit,
		"duration", res.Stats.LayoutTime)

	composeStart := time.Now()
	res.Builder = r.NewBuilder(opts)
	comp, err := r.Compose(ctx, l, res.Builder, opts)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	res.Composition = comp
	res.Stats.ComposeTime = time.Since(composeStart)
	r.Logger.Debug("composed workflows",
		"connectors", len(comp.Connectors),
		"duration", res.Stats.ComposeTime)
	return res, nil
}

// Load reads the root manifest and its related workflows. Related
// manifests that fail to load are logged and skipped.
func (r *Runner) Load(ctx context.Context, opts Options) (*manifest.Bundle, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	f, source := r.fetcherFor(opts)
	l := manifest.NewLoader(f, opts.Logger)
	l.Cache = r.Cache
	l.Keyer = r.scopedKeyer(opts.Source)
	l.TTL = opts.Config.Cache.TTL
	l.Concurrency = opts.Config.Fetch.Concurrency
	if opts.Refresh {
		l.Cache = cache.NewNullCache()
	}
	return l.Load(ctx, source)
}

// LayoutWithCacheInfo lays out b with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, b *manifest.Bundle, opts Options) (*graph.Layout, bool, error) {
	opts.SetDefaults()
	r.applyLogger(&opts)

	cacheKey := r.Keyer.LayoutKey(b.Digest, opts.LayoutKeyOpts(len(b.Related)))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if l, err := graph.UnmarshalLayout(data); err == nil {
				return l, true, nil
			}
		}
	}

	l, err := BuildLayout(ctx, b, opts.Config, opts.Logger)
	if err != nil {
		return nil, false, err
	}

	if data, err := graph.MarshalLayout(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, opts.Config.Cache.TTL); err != nil {
			r.Logger.Debug("layout cache write failed", "err", err)
		}
	}
	return l, false, nil
}

// Layout is a convenience wrapper that discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, b *manifest.Bundle, opts Options) (*graph.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, b, opts)
	return l, err
}

// NewBuilder returns a visual builder whose icons are fetched through the
// runner's cache.
func (r *Runner) NewBuilder(opts Options) *visual.Builder {
	opts.SetDefaults()
	r.applyLogger(&opts)

	f, _ := r.fetcherFor(opts)
	icons := visual.NewIconLoader(f, r.Cache, opts.Logger)
	icons.Keyer = r.Keyer
	icons.TTL = opts.Config.Cache.TTL
	return visual.NewBuilder(opts.Config, icons, opts.Logger)
}

// Compose registers every workflow of l and composes them into one
// coordinate space. The graphs of l are moved in place.
func (r *Runner) Compose(ctx context.Context, l *graph.Layout, b *visual.Builder, opts Options) (*compose.Composition, error) {
	opts.SetDefaults()
	cfg := opts.Config

	reg := compose.NewRegistry()
	for _, w := range l.Workflows {
		meta := compose.Workflow{
			ID:           w.ID,
			Relationship: w.Relationship,
			Parent:       w.Parent,
			BranchPoint:  w.BranchPoint,
		}
		if _, err := reg.Register(meta, w.Graph); err != nil {
			return nil, err
		}
	}
	return compose.Compose(ctx, reg, compose.Options{
		Factory: &compose.NodeFactory{
			Builder:     b,
			Scale:       1,
			Concurrency: cfg.Fetch.Concurrency,
		},
		Layout:    cfg.Layout,
		Theme:     cfg.Theme,
		RouteCell: cfg.Layout.NodeHeight,
	})
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// fetcherFor returns the fetcher for opts and the source name to load
// through it. Local roots are split into a directory and a file name so
// that related sources resolve next to the root.
func (r *Runner) fetcherFor(opts Options) (manifest.Fetcher, string) {
	if r.Fetcher != nil {
		return r.Fetcher, opts.Source
	}
	timeout := opts.Config.Fetch.Timeout
	if isURL(opts.Source) {
		return manifest.NewSourceFetcher(".", timeout), opts.Source
	}
	return manifest.NewSourceFetcher(filepath.Dir(opts.Source), timeout), filepath.Base(opts.Source)
}

// scopedKeyer prefixes manifest keys with the root source, since related
// sources are relative to it.
func (r *Runner) scopedKeyer(source string) cache.Keyer {
	root := source
	if !isURL(source) {
		if abs, err := filepath.Abs(source); err == nil {
			root = abs
		}
	}
	return cache.NewScopedKeyer(r.Keyer, cache.Hash([]byte(root))[:16]+":")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
