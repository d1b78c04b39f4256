package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
	"github.com/matzehuels/debtower/pkg/store"
)

// reportOpts holds the command-line flags for the report command.
type reportOpts struct {
	sqlite  string
	mongodb string
	run     string // run ID, latest SQLite run if empty
	top     int
}

func (c *CLI) reportCommand() *cobra.Command {
	opts := reportOpts{top: 20}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the counts of a stored run",
		Long: `Show a run previously stored by "debtower count" without recomputing it.

Examples:
  debtower report --sqlite runs.db                 # latest run
  debtower report --sqlite runs.db --run <id>
  debtower report --mongodb mongodb://localhost --run <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReport(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.mongodb, "mongodb", "", "read from this MongoDB deployment instead (requires --run)")
	cmd.Flags().StringVar(&opts.run, "run", "", "run ID (default: latest run in SQLite)")
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "number of rows to show (0 for all)")

	return cmd
}

func (c *CLI) runReport(ctx context.Context, opts *reportOpts) error {
	run, entries, err := c.loadRun(ctx, opts)
	if err != nil {
		return err
	}

	printSuccess("Run %s", StyleValue.Render(run.ID))
	printKeyValue("Source", run.Source)
	printKeyValue("Started", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	printDetail("%d packages, %d stanzas skipped, %d names stored", run.Packages, run.Skipped, len(entries))
	if opts.top > 0 && opts.top < len(entries) {
		entries = entries[:opts.top]
	}
	printCounts(entries)
	return nil
}

// loadRun reads a run from MongoDB when a URI is given, otherwise from SQLite.
func (c *CLI) loadRun(ctx context.Context, opts *reportOpts) (store.Run, []refcount.Entry, error) {
	if opts.mongodb != "" {
		if opts.run == "" {
			return store.Run{}, nil, errors.New(errors.ErrCodeInvalidInput, "--mongodb needs --run")
		}
		db, err := store.NewMongoSink(ctx, opts.mongodb, c.cfg.Store.MongoDB.Database)
		if err != nil {
			return store.Run{}, nil, err
		}
		defer db.Close()
		return db.ReadRun(ctx, opts.run)
	}

	path := c.sqlitePath(opts.sqlite)
	if path == "" {
		return store.Run{}, nil, errors.New(errors.ErrCodeInvalidInput, "no database: pass --sqlite or set store.sqlite in the config")
	}
	db, err := store.OpenSQLite(path, c.Logger)
	if err != nil {
		return store.Run{}, nil, err
	}
	defer db.Close()

	var run store.Run
	if opts.run == "" {
		if run, err = db.LatestRun(ctx); err != nil {
			return store.Run{}, nil, err
		}
	} else if run, err = db.Run(ctx, opts.run); err != nil {
		return store.Run{}, nil, err
	}
	entries, err := db.ReadCounts(ctx, run.ID)
	if err != nil {
		return store.Run{}, nil, err
	}
	return run, entries, nil
}

