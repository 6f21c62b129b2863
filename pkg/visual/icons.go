package visual

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/observability"
)

// IconLoader fetches icon payloads by URL. Concurrent loads of one URL share
// a single fetch, and payloads are kept in Cache.
type IconLoader struct {
	Fetcher manifest.Fetcher
	Cache   cache.Cache
	Keyer   cache.Keyer
	TTL     time.Duration
	Logger  *log.Logger

	group singleflight.Group
}

// NewIconLoader returns a loader backed by c. A nil cache stores nothing.
func NewIconLoader(f manifest.Fetcher, c cache.Cache, logger *log.Logger) *IconLoader {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IconLoader{Fetcher: f, Cache: c, Keyer: cache.NewDefaultKeyer(), Logger: logger}
}

// Load returns the payload of url.
func (l *IconLoader) Load(ctx context.Context, url string) ([]byte, error) {
	key := l.Keyer.IconKey(url)
	if data, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	v, err, _ := l.group.Do(url, func() (any, error) {
		start := time.Now()
		observability.Fetch().OnFetchStart(ctx, url)
		data, err := l.Fetcher.Fetch(ctx, url)
		observability.Fetch().OnFetchComplete(ctx, url, len(data), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if err := l.Cache.Set(ctx, key, data, l.TTL); err != nil {
			l.Logger.Debug("icon cache write failed", "url", url, "err", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
