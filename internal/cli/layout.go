package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/pipeline"
)

// layoutCommand creates the layout command for computing workflow layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [manifest]",
		Short: "Compute the layout of a manifest and its related workflows",
		Long: `Compute the layout of a manifest and its related workflows.

The layout command reads a JSON or TOML provenance manifest, fetches every
related workflow it references, and places the nodes of each workflow. The
output is a layout.json file that 'render' and 'serve' accept in place of the
manifest.

Related manifests that cannot be fetched are reported and skipped. Results
are cached by manifest content and layout configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Source: args[0], Refresh: refresh}
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached manifests and layouts")

	return cmd
}

// runLayout loads the bundle, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts.Config = cfg
	opts.Logger = c.Logger

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Loading manifests...")
	spinner.Start()

	bundle, err := runner.Load(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return fmt.Errorf("load %s: %w", opts.Source, err)
	}
	spinner.Update("Computing layout...")
	l, cacheHit, err := runner.LayoutWithCacheInfo(ctx, bundle, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", opts.Source) + ".layout.json"
	}
	if err := graph.WriteLayoutFile(l, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(l.Workflows), l.NodeCount(), cacheHit)
	printFailures(bundle.Failures)
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)
	return nil
}

// printFailures reports related manifests that were skipped.
func printFailures(failures []manifest.Failure) {
	for _, f := range failures {
		printWarning("Skipped %s workflow %q: %v", f.Ref.Relationship, f.Ref.Workflow, f.Err)
	}
}

// isLayoutFile reports whether path names a layout written by 'layout'.
func isLayoutFile(path string) bool {
	return strings.HasSuffix(path, ".layout.json")
}
