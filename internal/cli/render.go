package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/pipeline"
)

// renderCommand creates the render command for generating visual output.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [manifest|layout.json]",
		Short: "Render a manifest or layout to SVG, PNG, PDF, DOT or JSON",
		Long: `Render a manifest or layout to SVG, PNG, PDF, DOT or JSON.

The input is either a provenance manifest, which is loaded and laid out
first, or a layout.json produced by 'layout'. All workflows are composed
into one picture: related workflows are stacked above (ancestors) or below
(children and replays) the main workflow, with shared steps aligned.

PNG and PDF output require rsvg-convert from librsvg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached manifests and layouts")
	cmd.Flags().BoolVar(&opts.ShowAllEdges, "edges", false, "show all edges, including supporting inputs and attestations")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "add asset types and titles to node labels")
	cmd.Flags().Float64Var(&opts.PNGScale, "png-scale", pipeline.DefaultPNGScale, "PNG zoom factor")

	return cmd
}

// runRender composes the input and writes one file per format.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
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

	spinner := newSpinner(ctx, "Preparing...")
	spinner.Start()

	var res *pipeline.Result
	if isLayoutFile(opts.Source) {
		res, err = c.composeLayoutFile(ctx, runner, opts)
	} else {
		spinner.Update("Loading, laying out and composing...")
		res, err = runner.Prepare(ctx, opts)
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}

	spinner.Update("Rendering...")
	artifacts, err := runner.Render(ctx, res.Composition, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	if err := writeArtifacts(artifacts, opts.Formats, opts.Source, output); err != nil {
		return err
	}
	printStats(len(res.Layout.Workflows), res.Layout.NodeCount(), res.CacheInfo.LayoutHit)
	if res.Bundle != nil {
		printFailures(res.Bundle.Failures)
	}
	return nil
}

// composeLayoutFile composes a layout written by 'layout'.
func (c *CLI) composeLayoutFile(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	prog := newProgress(c.Logger)
	l, err := graph.ReadLayoutFile(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("load layout %s: %w", opts.Source, err)
	}
	b := runner.NewBuilder(opts)
	comp, err := runner.Compose(ctx, l, b, opts)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	prog.done(fmt.Sprintf("Composed %s", plural(len(l.Workflows), "workflow")))
	return &pipeline.Result{Layout: l, Composition: comp, Builder: b, CacheInfo: pipeline.CacheInfo{LayoutHit: true}}, nil
}

// writeArtifacts writes each artifact to <base><ext>, or to output
// verbatim when a single format was requested. The input is never
// overwritten.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) error {
	if len(formats) == 1 && output != "" {
		return writeArtifact(output, input, artifacts[formats[0]])
	}
	base := basePath(output, input)
	sorted := append([]string(nil), formats...)
	sort.Strings(sorted)
	for _, f := range sorted {
		if err := writeArtifact(base+extension(f), input, artifacts[f]); err != nil {
			return err
		}
	}
	return nil
}

// extension returns the file extension of format. JSON output is a
// composed layout.
func extension(format string) string {
	if format == pipeline.FormatJSON {
		return ".layout.json"
	}
	return "." + format
}

func writeArtifact(path, input string, data []byte) error {
	if filepath.Clean(path) == filepath.Clean(input) {
		return fmt.Errorf("refusing to overwrite input %s; pass -o", input)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("Wrote %s", path)
	return nil
}
