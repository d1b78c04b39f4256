// Package pipeline runs a complete reference count computation.
//
// The pipeline has three stages:
//
//  1. Load: read a Packages index from a local file or a mirror and build
//     the catalog
//  2. Count: compute every closure on a worker pool and aggregate the
//     reference counts
//  3. Store: hand the sorted table (and optionally the raw records) to a
//     [store.Sink]
//
// The CLI and the HTTP server share this code so both see the same catalog
// for the same options:
//
//	runner := pipeline.NewRunner(mirrorClient, logger)
//	res, err := runner.Count(ctx, pipeline.Options{
//	    Source:  pipeline.Source{Index: mirror.IndexRef{Suite: "bookworm"}},
//	    Workers: 8,
//	}, sink)
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/mirror"
	"github.com/matzehuels/debtower/pkg/refcount"
	"github.com/matzehuels/debtower/pkg/store"
)

// Source names where the index comes from. File wins over Index.
type Source struct {
	File    string          // local Packages file, optionally gzipped
	Index   mirror.IndexRef // mirror index, used when File is empty
	Refresh bool            // bypass the index cache
}

// String identifies the source in logs and run records.
func (s Source) String() string {
	if s.File != "" {
		return s.File
	}
	return s.Index.String()
}

// Options configures a run.
type Options struct {
	Source

	// Fields lists the dependency fields to follow, in order.
	// Defaults to [debian.DefaultDependencyField].
	Fields []string

	// Workers bounds parallel closure computation. 0 means runtime.NumCPU().
	Workers int

	// Top keeps only the N highest counts in the stored table. 0 keeps all.
	Top int

	// KeepRecords also stores the raw package stanzas when the sink supports it.
	KeepRecords bool
}

// ValidateAndSetDefaults checks the options and fills defaults in place.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	if o.Top < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "top must not be negative")
	}
	for _, f := range o.Fields {
		if f == "" {
			return errors.New(errors.ErrCodeInvalidInput, "dependency field name cannot be empty")
		}
	}
	if len(o.Fields) == 0 {
		o.Fields = []string{debian.DefaultDependencyField}
	}
	if o.File == "" {
		o.Index = o.Index.WithDefaults()
		if o.Index.Kind != mirror.Packages {
			return errors.New(errors.ErrCodeUnsupported, "reference counts need a Packages index, got %s", o.Index.Kind)
		}
	}
	return nil
}

// Result is the outcome of a run.
type Result struct {
	Catalog *debian.Catalog
	Build   debian.BuildStats
	Counts  refcount.Counts
	Entries []refcount.Entry // sorted, truncated to Options.Top
	Run     store.Run
	Stats   Stats
}

// Stats records stage timings.
type Stats struct {
	IndexBytes int
	LoadTime   time.Duration
	CountTime  time.Duration
	StoreTime  time.Duration
}

// String renders the timings for a summary line.
func (s Stats) String() string {
	return fmt.Sprintf("load %s, count %s, store %s",
		s.LoadTime.Round(time.Millisecond),
		s.CountTime.Round(time.Millisecond),
		s.StoreTime.Round(time.Millisecond))
}
