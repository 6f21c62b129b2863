// Package cli implements the provgraph command-line interface.
//
// # Commands
//
//   - layout: load a manifest bundle and write its workflow layouts
//   - render: render a manifest or layout file to SVG, PNG, PDF, DOT or JSON
//   - inspect: explore a bundle interactively in the terminal
//   - serve: serve layouts, culled frames and SVG over HTTP
//   - cache: manage the manifest, icon and layout cache
//   - config: write or show the effective configuration
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// installs logging observability hooks.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/provgraph/pkg/buildinfo"
	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/observability"
	"github.com/matzehuels/provgraph/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "provgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the YAML configuration file; empty uses the default
	// location.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetVerbose switches to debug logging and routes pipeline, fetch, cull
// and cache events to the logger.
func (c *CLI) SetVerbose(verbose bool) {
	if !verbose {
		c.SetLogLevel(LogInfo)
		return
	}
	c.SetLogLevel(LogDebug)
	observability.NewLogHooks(c.Logger).Install()
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "provgraph lays out and explores provenance graphs",
		Long: `provgraph turns provenance manifests (assets, computations and attestations
across related workflows) into positioned graphs, and renders or explores them
at three levels of detail.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: "+defaultConfigPath()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig resolves the configuration file and environment overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.ConfigPath
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	cc := cfg.Cache
	if noCache {
		cc.Backend = config.CacheBackendNone
	}
	store, err := cache.Open(ctx, cc)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

// defaultConfigPath returns ~/.config/provgraph/config.yaml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "provgraph.yaml"
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// cacheDir returns the file cache directory of cfg.
func cacheDir(cfg config.Cache) string {
	if cfg.Dir != "" {
		return cfg.Dir
	}
	return cache.DefaultDir()
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// basePath derives the output path without extension. An output with a
// known format extension has it stripped; without output the input's
// extensions (including .layout) are stripped.
func basePath(output, input string) string {
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		return strings.TrimSuffix(base, ".layout")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
