package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/store"
)

// countOpts holds the command-line flags for the count command.
type countOpts struct {
	index   indexFlags
	output  string // CSV output path, empty to skip
	sqlite  string // SQLite database path
	mongodb string // MongoDB URI
	top     int    // rows shown in the summary table
	limit   int    // rows written to sinks, 0 for all
	records bool   // store raw package records in SQLite
}

func (c *CLI) countCommand() *cobra.Command {
	opts := countOpts{output: "result.csv", top: 20}

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count how many dependency closures each package appears in",
		Long: `Count reads a Packages index, computes the transitive dependency closure of
every package, and tallies how many closures contain each package.

Examples:
  debtower count                                   # stable/main/amd64 from the mirror
  debtower count --suite bookworm --arch arm64 -o arm64.csv
  debtower count --file Packages.gz --sqlite runs.db --records
  debtower count --field Pre-Depends,Depends --top 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCount(cmd.Context(), &opts)
		},
	}

	opts.index.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "CSV output file (empty to skip)")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "also store the run in this SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.mongodb, "mongodb", "", "also store the run in this MongoDB deployment (default from config)")
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "number of rows to show in the summary")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "only store the N highest counts (0 stores all)")
	cmd.Flags().BoolVar(&opts.records, "records", false, "store raw package records in SQLite")

	return cmd
}

func (c *CLI) runCount(ctx context.Context, opts *countOpts) error {
	runner, closeRunner, err := c.newRunner(ctx, opts.index.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer closeRunner()

	sink, err := c.openSinks(ctx, opts)
	if err != nil {
		return err
	}
	defer sink.Close()

	popts := c.options(&opts.index)
	popts.Top = opts.limit
	popts.KeepRecords = opts.records

	prog := newProgress(c.Logger)
	res, err := runner.Count(ctx, popts, sink)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Counted %d packages", res.Build.Packages))

	printSuccess("Counted references for %s", StyleNumber.Render(popts.Source.String()))
	printDetail("%d packages, %d stanzas skipped, %d names counted", res.Build.Packages, res.Build.Skipped, len(res.Counts))
	printDetail("%s", res.Stats)
	if res.Build.Duplicates > 0 {
		printWarning("%d duplicate package names, last entry kept", res.Build.Duplicates)
	}
	printCounts(res.Counts.Top(opts.top))

	if opts.output != "" {
		printFile(opts.output)
	}
	if db := c.sqlitePath(opts.sqlite); db != "" {
		printFile(db)
		printKeyValue("Run", res.Run.ID)
	}
	return nil
}

func (c *CLI) sqlitePath(flag string) string {
	return or(flag, c.cfg.Store.SQLite)
}

func (c *CLI) openSinks(ctx context.Context, opts *countOpts) (store.Multi, error) {
	var sinks store.Multi
	fail := func(err error) (store.Multi, error) {
		sinks.Close()
		return nil, err
	}

	if opts.output != "" {
		s, err := store.CreateCSV(opts.output)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if path := c.sqlitePath(opts.sqlite); path != "" {
		s, err := store.OpenSQLite(path, c.Logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	} else if opts.records {
		c.Logger.Warn("--records needs a SQLite database; ignoring")
	}
	if uri := or(opts.mongodb, c.cfg.Store.MongoDB.URI); uri != "" {
		s, err := store.NewMongoSink(ctx, uri, c.cfg.Store.MongoDB.Database)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
