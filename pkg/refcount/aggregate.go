package refcount

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// checkEvery is how many closures a worker computes between context checks.
const checkEvery = 64

// Options configures [Aggregate] and [Closures].
type Options struct {
	// Workers is the number of goroutines computing closures.
	// Default: runtime.NumCPU().
	Workers int
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Aggregate computes the reference count table of c.
// It returns ctx.Err() if ctx is cancelled before all closures are done.
func Aggregate(ctx context.Context, c Catalog, opts Options) (Counts, error) {
	total := make(Counts)
	var mu sync.Mutex

	err := forEachShard(ctx, c.Names(), opts, func(shard []string) error {
		partial := make(Counts)
		for i, name := range shard {
			if i%checkEvery == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			partial.Add(Closure(c, name))
		}
		mu.Lock()
		total.Merge(partial)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// Closures computes the closure of every package in c, keyed by name.
func Closures(ctx context.Context, c Catalog, opts Options) (map[string][]string, error) {
	out := make(map[string][]string)
	var mu sync.Mutex

	err := forEachShard(ctx, c.Names(), opts, func(shard []string) error {
		local := make(map[string][]string, len(shard))
		for i, name := range shard {
			if i%checkEvery == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			local[name] = Closure(c, name)
		}
		mu.Lock()
		for k, v := range local {
			out[k] = v
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// forEachShard splits names into one contiguous shard per worker and runs
// fn on each shard concurrently.
func forEachShard(ctx context.Context, names []string, opts Options, fn func([]string) error) error {
	opts = opts.WithDefaults()
	if err := ctx.Err(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	size := (len(names) + opts.Workers - 1) / opts.Workers
	for start := 0; start < len(names); start += size {
		shard := names[start:min(start+size, len(names))]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(shard)
		})
	}
	return g.Wait()
}
