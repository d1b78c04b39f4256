package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// closureOpts holds the command-line flags for the closure command.
type closureOpts struct {
	index indexFlags
	all   bool // print every package's closure
}

func (c *CLI) closureCommand() *cobra.Command {
	var opts closureOpts

	cmd := &cobra.Command{
		Use:   "closure <package> | --all",
		Short: "Print a package's transitive dependency closure",
		Long: `Print every package reachable from <package> through its dependency
fields, one per line, in traversal order. The package itself comes first.

With --all, print one line per package in the index:
  <package>: <closure...>`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.all {
				return c.runClosureAll(cmd.Context(), cmd.OutOrStdout(), &opts.index)
			}
			return c.runClosure(cmd.Context(), cmd.OutOrStdout(), &opts.index, args[0])
		},
	}
	opts.index.register(cmd)
	cmd.Flags().BoolVar(&opts.all, "all", false, "print the closure of every package")
	return cmd
}

func (c *CLI) runClosure(ctx context.Context, w io.Writer, flags *indexFlags, name string) error {
	if err := errors.ValidatePackageName(name); err != nil {
		return err
	}
	runner, closeRunner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer closeRunner()

	cat, _, _, err := runner.Load(ctx, c.options(flags))
	if err != nil {
		return err
	}
	if !cat.Has(name) {
		c.Logger.Warn("package not in index", "package", name)
	}

	for _, dep := range refcount.Closure(cat, name) {
		fmt.Fprintln(w, dep)
	}
	return nil
}

func (c *CLI) runClosureAll(ctx context.Context, w io.Writer, flags *indexFlags) error {
	runner, closeRunner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer closeRunner()

	popts := c.options(flags)
	cat, _, _, err := runner.Load(ctx, popts)
	if err != nil {
		return err
	}
	closures, err := refcount.Closures(ctx, cat, refcount.Options{Workers: popts.Workers})
	if err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(closures)) {
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(closures[name], " "))
	}
	return nil
}
