package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/mirror"
	"github.com/matzehuels/debtower/pkg/sloc"
	"github.com/matzehuels/debtower/pkg/store"
)

func (c *CLI) slocCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sloc",
		Short: "Survey source line counts of a suite",
	}
	cmd.AddCommand(c.slocSurveyCommand())
	cmd.AddCommand(c.slocImportCommand())
	return cmd
}

// surveyOpts holds the command-line flags for "sloc survey".
type surveyOpts struct {
	suite      string
	component  string
	output     string
	workDir    string
	workers    int
	limit      int
	packages   []string
	dpkgSource string
	cloc       string
	noCache    bool
}

func (c *CLI) slocSurveyCommand() *cobra.Command {
	opts := surveyOpts{output: "result", workers: 1}

	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Download, unpack and count every source package",
		Long: `Read the Sources index, then for each source package download its files,
unpack them with dpkg-source, and count lines with cloc. Each result is
appended to the output file as one JSON line.

Requires dpkg-source and cloc on PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSurvey(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.suite, "suite", "", "suite to survey (default from config)")
	cmd.Flags().StringVar(&opts.component, "component", "", "archive component (default main)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "JSON-lines result file (appended)")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "scratch directory for downloads (default system temp)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", opts.workers, "packages surveyed in parallel")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "survey at most N packages (0 for all)")
	cmd.Flags().StringSliceVar(&opts.packages, "package", nil, "only survey these source packages")
	cmd.Flags().StringVar(&opts.dpkgSource, "dpkg-source", "dpkg-source", "dpkg-source binary")
	cmd.Flags().StringVar(&opts.cloc, "cloc", "cloc", "cloc binary")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the index cache")

	return cmd
}

func (c *CLI) runSurvey(ctx context.Context, opts *surveyOpts) error {
	m, cacheStore, err := c.newMirror(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize mirror: %w", err)
	}
	defer cacheStore.Close()

	ref := mirror.IndexRef{
		Suite:     or(opts.suite, c.cfg.Mirror.Suite),
		Component: or(opts.component, c.cfg.Mirror.Component),
		Kind:      mirror.Sources,
	}
	text, err := m.FetchIndex(ctx, ref, false)
	if err != nil {
		return err
	}
	pkgs, err := sloc.ParseSources(bytes.NewReader(text))
	if err != nil {
		return err
	}
	pkgs = selectSources(pkgs, opts.packages, opts.limit)
	c.Logger.Info("sources loaded", "index", ref, "packages", len(pkgs))

	f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := sloc.NewResultWriter(f)

	surveyor := &sloc.Surveyor{
		Downloader: m,
		Extractor:  sloc.DpkgSource{Binary: opts.dpkgSource},
		Counter:    sloc.Cloc{Binary: opts.cloc},
		WorkDir:    opts.workDir,
		Workers:    opts.workers,
		Logger:     c.Logger,
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Surveying %d packages...", len(pkgs)))
	spinner.Start()
	done := 0
	stats, err := surveyor.Run(ctx, pkgs, func(res sloc.Result) error {
		done++
		spinner.Update("Surveyed %d/%d: %s", done, len(pkgs), res.Package)
		return w.Write(res)
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	printSuccess("Surveyed %d of %d source packages", stats.Succeeded, stats.Total)
	if stats.Failed > 0 {
		printWarning("%d packages failed, see log", stats.Failed)
	}
	printFile(opts.output)
	printNextStep("Import", "debtower sloc import "+opts.output+" --sqlite data.db")
	return nil
}

func selectSources(pkgs []sloc.SourcePackage, names []string, limit int) []sloc.SourcePackage {
	if len(names) > 0 {
		pkgs = slices.DeleteFunc(pkgs, func(p sloc.SourcePackage) bool {
			return !slices.Contains(names, p.Name)
		})
	}
	if limit > 0 && limit < len(pkgs) {
		pkgs = pkgs[:limit]
	}
	return pkgs
}

func (c *CLI) slocImportCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <result-file>",
		Short: "Import survey results into SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], c.sqlitePath(dbPath))
		},
	}
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "SQLite database (default from config)")
	return cmd
}

func (c *CLI) runImport(ctx context.Context, resultFile, dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("no database: pass --sqlite or set store.sqlite in the config")
	}
	f, err := os.Open(resultFile)
	if err != nil {
		return err
	}
	defer f.Close()

	results, err := sloc.ReadResults(f)
	if err != nil {
		return err
	}
	sums := make([]sloc.Summary, 0, len(results))
	for _, r := range results {
		s, err := r.Summary()
		if err != nil {
			c.Logger.Warn("skipping result", "package", r.Package, "error", err)
			continue
		}
		sums = append(sums, s)
	}

	db, err := store.OpenSQLite(dbPath, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.WriteLineCounts(ctx, sums); err != nil {
		return err
	}

	printSuccess("Imported %d line counts", len(sums))
	printFile(dbPath)
	return nil
}
