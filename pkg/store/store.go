// Package store persists the output of a counting run.
//
// A [Sink] receives the run description and the sorted reference count
// table. Three sinks are provided: [CSVSink] writes the classic
// "name,refcount" file, [SQLite] keeps every run (and optionally the raw
// package records and source line counts) in a local database, and
// [MongoSink] stores one document per run for shared dashboards.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// Run describes one counting run.
type Run struct {
	ID        string    `json:"id" bson:"_id"`
	StartedAt time.Time `json:"started_at" bson:"started_at"`
	Source    string    `json:"source" bson:"source"` // index URL or local file
	Packages  int       `json:"packages" bson:"packages"`
	Skipped   int       `json:"skipped" bson:"skipped"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(source string, stats debian.BuildStats) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    source,
		Packages:  stats.Packages,
		Skipped:   stats.Skipped,
	}
}

// Sink receives the results of a run.
type Sink interface {
	WriteCounts(ctx context.Context, run Run, entries []refcount.Entry) error
	Close() error
}

// RecordSink additionally stores the raw package records of a run.
type RecordSink interface {
	Sink
	WriteRecords(ctx context.Context, run Run, pkgs []*debian.Package) error
}

// Multi fans writes out to several sinks. Every sink is attempted; the
// errors are joined.
type Multi []Sink

// WriteCounts writes to every sink in order.
func (m Multi) WriteCounts(ctx context.Context, run Run, entries []refcount.Entry) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteCounts(ctx, run, entries))
	}
	return errors.Join(errs...)
}

// WriteRecords writes to every sink that implements [RecordSink].
func (m Multi) WriteRecords(ctx context.Context, run Run, pkgs []*debian.Package) error {
	var errs []error
	for _, s := range m {
		if rs, ok := s.(RecordSink); ok {
			errs = append(errs, rs.WriteRecords(ctx, run, pkgs))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

var _ RecordSink = Multi(nil)
