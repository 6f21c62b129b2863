package manifest

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/observability"
)

// Bundle is a root manifest together with its related workflows.
type Bundle struct {
	Root     *Manifest
	Related  []RelatedManifest // declaration order, failed references omitted
	Failures []Failure
	Digest   string // hash over every raw document, for layout cache keys
}

// RelatedManifest pairs a reference with its loaded manifest.
type RelatedManifest struct {
	Ref      Reference
	Manifest *Manifest
}

// Failure records a related manifest that could not be loaded.
type Failure struct {
	Ref Reference
	Err error
}

// Loader reads a root manifest and fetches its related manifests.
type Loader struct {
	Fetcher     Fetcher
	Cache       cache.Cache
	Keyer       cache.Keyer
	TTL         time.Duration
	Concurrency int
	Logger      *log.Logger
}

// NewLoader returns a Loader with a null cache and the default keyer.
func NewLoader(f Fetcher, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		Fetcher:     f,
		Cache:       cache.NewNullCache(),
		Keyer:       cache.NewDefaultKeyer(),
		Concurrency: 8,
		Logger:      logger,
	}
}

// Load fetches source as the root manifest, then fetches every related
// reference concurrently. Only a root failure is returned as an error.
func (l *Loader) Load(ctx context.Context, source string) (*Bundle, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, source)

	b, err := l.load(ctx, source)
	workflows := 0
	if b != nil {
		workflows = 1 + len(b.Related)
	}
	observability.Pipeline().OnLoadComplete(ctx, source, workflows, time.Since(start), err)
	return b, err
}

func (l *Loader) load(ctx context.Context, source string) (*Bundle, error) {
	raw, err := l.Fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	root, err := Decode(raw, FormatFor(source))
	if err != nil {
		return nil, err
	}

	type result struct {
		raw []byte
		m   *Manifest
		err error
	}
	results := make([]result, len(root.Related))

	g, gctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	for i, ref := range root.Related {
		g.Go(func() error {
			data, err := l.fetchCached(gctx, ref.Source)
			if err == nil {
				results[i].m, err = Decode(data, FormatFor(ref.Source))
			}
			results[i].raw, results[i].err = data, err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := bytes.NewBuffer(raw)
	b := &Bundle{Root: root}
	for i, ref := range root.Related {
		r := results[i]
		if r.err != nil {
			l.logger().Warn("related manifest unavailable", "workflow", ref.Workflow, "source", ref.Source, "err", r.err)
			b.Failures = append(b.Failures, Failure{Ref: ref, Err: r.err})
			continue
		}
		if ref.Parent == "" {
			ref.Parent = root.ID
		}
		b.Related = append(b.Related, RelatedManifest{Ref: ref, Manifest: r.m})
		digest.WriteByte(0)
		digest.Write(r.raw)
	}
	b.Digest = cache.Hash(digest.Bytes())
	return b, nil
}

func (l *Loader) fetchCached(ctx context.Context, source string) ([]byte, error) {
	key := l.keyer().ManifestKey(source)
	if l.Cache != nil {
		if data, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
			return data, nil
		}
	}

	start := time.Now()
	observability.Fetch().OnFetchStart(ctx, source)
	data, err := l.Fetcher.Fetch(ctx, source)
	observability.Fetch().OnFetchComplete(ctx, source, len(data), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		if err := l.Cache.Set(ctx, key, data, l.TTL); err != nil {
			l.logger().Debug("cache write failed", "key", key, "err", err)
		}
	}
	return data, nil
}

func (l *Loader) keyer() cache.Keyer {
	if l.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return l.Keyer
}

func (l *Loader) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}
