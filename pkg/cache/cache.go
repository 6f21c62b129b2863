// Package cache provides byte-oriented caching for fetched manifests,
// computed layouts and icon payloads.
//
// Three backends are available:
//
//   - [FileCache] stores entries under a local directory (CLI default)
//   - [RedisCache] stores entries in a Redis server (shared deployments)
//   - [NullCache] stores nothing (--no-cache)
//
// Keys are produced by a [Keyer] so that every backend agrees on naming.
// [ScopedKeyer] prefixes keys when several scenes share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiration.
//
// Get reports a miss with (nil, false, nil); errors are reserved for backend
// failures. A zero ttl in Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the entities provgraph caches.
type Keyer interface {
	// ManifestKey names a fetched manifest document by its source.
	ManifestKey(source string) string

	// LayoutKey names a computed layout for a manifest content hash.
	LayoutKey(manifestHash string, opts LayoutKeyOpts) string

	// IconKey names a fetched icon payload by URL.
	IconKey(url string) string
}

// LayoutKeyOpts holds the inputs besides the manifest that change a layout.
type LayoutKeyOpts struct {
	ConfigHash   string `json:"config_hash,omitempty"`
	ShowAllEdges bool   `json:"show_all_edges,omitempty"`
	Related      int    `json:"related,omitempty"`
}
