// Package cli implements the debtower command-line interface.
//
// Commands:
//   - count: compute reference counts for a Packages index
//   - report: show a stored run
//   - closure: print one package's transitive dependency closure
//   - graph: export a package's dependency graph as DOT or SVG
//   - serve: serve counts and closures over HTTP
//   - sloc: survey source line counts of a suite and import the results
//   - cache: manage the index cache
//
// All commands accept --verbose (-v) for debug logging and --config for an
// alternative configuration file.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debtower/pkg/buildinfo"
	"github.com/matzehuels/debtower/pkg/cache"
	"github.com/matzehuels/debtower/pkg/config"
	"github.com/matzehuels/debtower/pkg/mirror"
	"github.com/matzehuels/debtower/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "debtower",
		Short:        "Debtower ranks Debian packages by how many others depend on them",
		Long:         `Debtower reads a Debian Packages index, computes every package's transitive dependency closure, and counts how many closures each package appears in.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/debtower/config.toml)")

	root.AddCommand(c.countCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.closureCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.slocCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// openCache returns the configured cache backend. A file cache that cannot
// be created degrades to no caching.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, c.cfg.Cache.RedisURL)
	default:
		dir, err := c.cfg.CacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("cache disabled", "dir", dir, "error", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
}

// newMirror creates a mirror client over the configured cache. The returned
// cache must be closed by the caller.
func (c *CLI) newMirror(ctx context.Context, noCache bool) (*mirror.Client, cache.Cache, error) {
	store, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}
	m, err := mirror.New(c.cfg.Mirror.URL, store,
		mirror.WithTTL(c.cfg.Mirror.TTL.Duration),
		mirror.WithLogger(c.Logger))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return m, store, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, func(), error) {
	m, store, err := c.newMirror(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewRunner(m, c.Logger), func() { store.Close() }, nil
}

// indexFlags selects the Packages index shared by count, closure, graph
// and serve. Empty values fall back to the configuration file.
type indexFlags struct {
	file      string
	suite     string
	component string
	arch      string
	fields    []string
	workers   int
	refresh   bool
	noCache   bool
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "read a local Packages file (.gz is decompressed) instead of the mirror")
	cmd.Flags().StringVar(&f.suite, "suite", "", "suite to fetch (default from config, stable)")
	cmd.Flags().StringVar(&f.component, "component", "", "archive component (default main)")
	cmd.Flags().StringVar(&f.arch, "arch", "", "binary architecture (default amd64)")
	cmd.Flags().StringSliceVar(&f.fields, "field", nil, "dependency field(s) to follow, in order (default Depends)")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "parallel closure workers (default from config, number of CPUs)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "refetch the index even if cached")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the index cache")
}

// options merges flags over the configuration.
func (c *CLI) options(f *indexFlags) pipeline.Options {
	m := c.cfg.Mirror
	opts := pipeline.Options{
		Source: pipeline.Source{
			File: f.file,
			Index: mirror.IndexRef{
				Suite:     or(f.suite, m.Suite),
				Component: or(f.component, m.Component),
				Arch:      or(f.arch, m.Arch),
				Kind:      mirror.Packages,
			},
			Refresh: f.refresh,
		},
		Fields:  f.fields,
		Workers: f.workers,
	}
	if len(opts.Fields) == 0 {
		opts.Fields = c.cfg.Count.DependencyFields
	}
	if opts.Workers == 0 {
		opts.Workers = c.cfg.Count.Workers
	}
	return opts
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
