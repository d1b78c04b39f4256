package pipeline

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/mirror"
	"github.com/matzehuels/debtower/pkg/observability"
	"github.com/matzehuels/debtower/pkg/refcount"
	"github.com/matzehuels/debtower/pkg/store"
)

// Runner executes pipeline stages. It holds no per-run state, so one Runner
// may serve concurrent runs with different options.
type Runner struct {
	Mirror *mirror.Client
	Logger *log.Logger
}

// NewRunner creates a runner. A nil mirror client is allowed when every
// run reads a local file; a nil logger discards output.
func NewRunner(m *mirror.Client, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Mirror: m, Logger: logger}
}

// Load reads the index and builds the catalog. It returns
// [debian.ErrNoRecords] when the index holds no packages.
func (r *Runner) Load(ctx context.Context, opts Options) (*debian.Catalog, debian.BuildStats, int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, debian.BuildStats{}, 0, err
	}

	var (
		text []byte
		err  error
	)
	if opts.File != "" {
		r.Logger.Info("reading index", "file", opts.File)
		text, err = mirror.ReadFile(opts.File)
	} else {
		if r.Mirror == nil {
			return nil, debian.BuildStats{}, 0, errors.New(errors.ErrCodeInvalidInput, "no mirror configured and no index file given")
		}
		text, err = r.Mirror.FetchIndex(ctx, opts.Index, opts.Refresh)
	}
	if err != nil {
		return nil, debian.BuildStats{}, 0, err
	}

	cat, stats, err := debian.ReadIndex(bytes.NewReader(text), debian.Options{Fields: opts.Fields})
	if err != nil {
		return nil, stats, len(text), err
	}
	r.Logger.Info("catalog built",
		"packages", stats.Packages,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates)
	return cat, stats, len(text), nil
}

// Count runs all stages. A nil sink skips the store stage.
func (r *Runner) Count(ctx context.Context, opts Options, sink store.Sink) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	res := &Result{}

	hooks := observability.Pipeline()
	source := opts.Source.String()

	start := time.Now()
	hooks.OnLoadStart(ctx, source)
	cat, build, size, err := r.Load(ctx, opts)
	hooks.OnLoadComplete(ctx, source, build.Packages, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	res.Catalog, res.Build = cat, build
	res.Stats.IndexBytes = size
	res.Stats.LoadTime = time.Since(start)

	start = time.Now()
	hooks.OnCountStart(ctx, cat.Len())
	counts, err := refcount.Aggregate(ctx, cat, refcount.Options{Workers: opts.Workers})
	hooks.OnCountComplete(ctx, len(counts), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	res.Counts = counts
	res.Entries = counts.Top(opts.Top)
	res.Stats.CountTime = time.Since(start)
	r.Logger.Info("counted references",
		"names", len(counts),
		"duration", res.Stats.CountTime.Round(time.Millisecond))

	res.Run = store.NewRun(source, build)
	if sink == nil {
		return res, nil
	}

	start = time.Now()
	err = r.writeResults(ctx, opts, sink, res)
	res.Stats.StoreTime = time.Since(start)
	hooks.OnStoreComplete(ctx, res.Run.ID, len(res.Entries), res.Stats.StoreTime, err)
	if err != nil {
		return res, err
	}
	r.Logger.Debug("results stored", "run", res.Run.ID, "rows", len(res.Entries))
	return res, nil
}

func (r *Runner) writeResults(ctx context.Context, opts Options, sink store.Sink, res *Result) error {
	if err := sink.WriteCounts(ctx, res.Run, res.Entries); err != nil {
		return err
	}
	if rs, ok := sink.(store.RecordSink); ok && opts.KeepRecords {
		return rs.WriteRecords(ctx, res.Run, packages(res.Catalog))
	}
	return nil
}

func packages(c *debian.Catalog) []*debian.Package {
	names := c.Names()
	out := make([]*debian.Package, 0, len(names))
	for _, name := range names {
		if p, ok := c.Get(name); ok {
			out = append(out, p)
		}
	}
	return out
}
