package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/provgraph/pkg/config"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or show the configuration",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.ConfigPath
			if path == "" {
				path = defaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			printSuccess("Wrote default configuration")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file plus PROVGRAPH_* overrides)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if raw {
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			printConfigSummary(cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "yaml", false, "print the full configuration as YAML")
	return cmd
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println(StyleTitle.Render("Layout"))
	printKeyValue("gaps", fmt.Sprintf("%.2f × %.2f", cfg.Layout.HorizontalGap, cfg.Layout.VerticalGap))
	printKeyValue("world scale", fmt.Sprintf("%g", cfg.Layout.WorldScale))
	printKeyValue("node size", fmt.Sprintf("%g × %g", cfg.Layout.NodeWidth, cfg.Layout.NodeHeight))
	printNewline()

	fmt.Println(StyleTitle.Render("View"))
	printKeyValue("zoom", fmt.Sprintf("%g to %g", cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom))
	printKeyValue("overview at", fmt.Sprintf("%g", cfg.LOD.OverviewThreshold))
	printKeyValue("detail at", fmt.Sprintf("%g", cfg.LOD.DetailThreshold))
	printKeyValue("text below", fmt.Sprintf("%g", cfg.LOD.TextModeThreshold))
	printKeyValue("grid cell", fmt.Sprintf("%g", cfg.Spatial.CellSize))
	printNewline()

	fmt.Println(StyleTitle.Render("Cache"))
	printKeyValue("backend", cfg.Cache.Backend)
	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		printKeyValue("dir", cacheDir(cfg.Cache))
	case config.CacheBackendRedis:
		printKeyValue("addr", cfg.Cache.RedisAddr)
	}
	printKeyValue("ttl", cfg.Cache.TTL.String())
}
