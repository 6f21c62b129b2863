package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/matzehuels/provgraph/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates sections: PROVGRAPH_LOD__DETAIL_THRESHOLD -> lod.detail_threshold.
const EnvPrefix = "PROVGRAPH_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PROVGRAPH_*). A missing file is not an
// error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "accessing config %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "loading env overrides")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "unmarshalling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshalling config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing config to %s", path)
	}
	return nil
}

var validCacheBackends = map[string]bool{
	CacheBackendFile:  true,
	CacheBackendRedis: true,
	CacheBackendNone:  true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	l := c.Layout
	if l.HorizontalGap <= 0 || l.VerticalGap <= 0 {
		return invalid("layout gaps must be positive")
	}
	if l.BoundsPadding < 0 || l.AttestationOffset <= 0 {
		return invalid("layout padding must be non-negative and attestation offset positive")
	}
	if l.WorldScale <= 0 || l.NodeWidth <= 0 || l.NodeHeight <= 0 {
		return invalid("world scale and node size must be positive")
	}

	v := c.Viewport
	if v.MinZoom <= 0 || v.MaxZoom <= v.MinZoom {
		return invalid("zoom range [%g, %g] is invalid", v.MinZoom, v.MaxZoom)
	}
	if v.MarginTop < 0 || v.MarginBottom < 0 || v.PanelWidth < 0 {
		return invalid("viewport margins must be non-negative")
	}

	d := c.LOD
	if d.OverviewThreshold <= v.MinZoom || d.DetailThreshold >= v.MaxZoom {
		return invalid("lod thresholds must lie inside the zoom range")
	}
	if d.OverviewThreshold >= d.DetailThreshold {
		return invalid("overview threshold %g must be below detail threshold %g", d.OverviewThreshold, d.DetailThreshold)
	}

	if c.Spatial.CellSize <= 0 || c.Spatial.CullMargin < 0 {
		return invalid("spatial cell size must be positive and cull margin non-negative")
	}

	if len(c.Theme.PhaseColors) == 0 {
		return invalid("theme defines no phase colors")
	}
	if c.Theme.TextureCacheSize < 0 {
		return invalid("texture cache size must be non-negative")
	}

	if !validCacheBackends[c.Cache.Backend] {
		return invalid("invalid cache backend %q: must be one of file, redis, none", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisAddr == "" {
		return invalid("redis cache backend requires redis_addr")
	}
	if c.Fetch.Concurrency < 0 {
		return invalid("fetch concurrency must be non-negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}
