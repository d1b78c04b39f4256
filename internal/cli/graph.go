package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/dag"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	index  indexFlags
	output string // .dot or .svg, stdout (DOT) if empty
	counts bool   // label nodes with catalog-wide reference counts
}

func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph <package>",
		Short: "Export a package's dependency graph as DOT or SVG",
		Long: `Export the subgraph reachable from <package>. Packages missing from the
index are drawn dashed. The output format follows the file extension.

Examples:
  debtower graph curl > curl.dot
  debtower graph curl -o curl.svg --counts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), &opts, args[0])
		},
	}

	opts.index.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file: .dot or .svg (DOT on stdout if empty)")
	cmd.Flags().BoolVar(&opts.counts, "counts", false, "label nodes with reference counts (computes all closures)")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, opts *graphOpts, name string) error {
	if err := errors.ValidatePackageName(name); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(opts.output))
	if opts.output != "" && ext != ".dot" && ext != ".svg" {
		return errors.New(errors.ErrCodeUnsupported, "unsupported output format %q (want .dot or .svg)", ext)
	}

	runner, closeRunner, err := c.newRunner(ctx, opts.index.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer closeRunner()

	popts := c.options(&opts.index)
	cat, _, _, err := runner.Load(ctx, popts)
	if err != nil {
		return err
	}

	var dotOpts dag.Options
	if opts.counts {
		counts, err := refcount.Aggregate(ctx, cat, refcount.Options{Workers: popts.Workers})
		if err != nil {
			return err
		}
		dotOpts.Counts = counts
	}

	g, err := refcount.Subgraph(cat, name)
	if err != nil {
		return err
	}
	dot := dag.ToDOT(g, dotOpts)
	c.Logger.Debug("graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if opts.output == "" {
		fmt.Print(dot)
		return nil
	}

	data := []byte(dot)
	if ext == ".svg" {
		spinner := newSpinner(ctx, fmt.Sprintf("Rendering %d nodes...", g.NodeCount()))
		spinner.Start()
		data, err = dag.RenderSVG(ctx, dot)
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return err
		}
		spinner.Stop()
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Graph of %s: %d packages, %d edges", name, g.NodeCount(), g.EdgeCount())
	printFile(opts.output)
	return nil
}
