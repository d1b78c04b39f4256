package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/pipeline"
	"github.com/matzehuels/debtower/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	index  indexFlags
	addr   string
	reload time.Duration // refetch interval, 0 disables
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve counts and closures over HTTP",
		Long: `Compute reference counts once and serve them as JSON.

Endpoints:
  GET /healthz
  GET /packages/{name}
  GET /packages/{name}/closure
  GET /packages/{name}/graph
  GET /counts?limit=N
  GET /counts/{name}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	opts.index.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().DurationVar(&opts.reload, "reload", 0, "refetch the index and recount at this interval (e.g. 6h)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	runner, closeRunner, err := c.newRunner(ctx, opts.index.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer closeRunner()

	popts := c.options(&opts.index)
	snap, err := snapshot(ctx, runner, popts)
	if err != nil {
		return err
	}
	srv := server.New(snap, c.Logger)

	if opts.reload > 0 {
		popts.Refresh = true
		go c.reloadLoop(ctx, runner, popts, srv, opts.reload)
	}

	printSuccess("Serving %d packages from %s", snap.Catalog.Len(), popts.Source.String())
	printNextStep("Try", fmt.Sprintf("curl http://localhost%s/counts?limit=10", opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}

func (c *CLI) reloadLoop(ctx context.Context, runner *pipeline.Runner, popts pipeline.Options, srv *server.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := snapshot(ctx, runner, popts)
			if err != nil {
				c.Logger.Error("reload failed", "error", err)
				continue
			}
			srv.Update(snap)
			c.Logger.Info("reloaded", "packages", snap.Catalog.Len())
		}
	}
}

func snapshot(ctx context.Context, runner *pipeline.Runner, popts pipeline.Options) (*server.Snapshot, error) {
	res, err := runner.Count(ctx, popts, nil)
	if err != nil {
		return nil, err
	}
	return server.NewSnapshot(res.Catalog, res.Counts, popts.Source.String()), nil
}
