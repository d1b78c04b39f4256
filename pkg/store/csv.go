package store

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// CSVSink writes a "name,refcount" table.
type CSVSink struct {
	w      io.Writer
	closer io.Closer
}

// NewCSVSink writes to w. Close does not close w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

// CreateCSV creates (or truncates) the file at path.
func CreateCSV(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	return &CSVSink{w: f, closer: f}, nil
}

// WriteCounts writes the header and one row per entry, in the given order.
func (s *CSVSink) WriteCounts(ctx context.Context, run Run, entries []refcount.Entry) error {
	w := csv.NewWriter(s.w)
	if err := w.Write([]string{"name", "refcount"}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write csv header")
	}
	for i, e := range entries {
		if i%1024 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.Write([]string{e.Name, strconv.Itoa(e.Count)}); err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "flush csv")
	}
	return nil
}

// Close closes the underlying file when the sink owns it.
func (s *CSVSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ Sink = (*CSVSink)(nil)
