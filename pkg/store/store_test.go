package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/debtower/pkg/debian"
	debterrors "github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
	"github.com/matzehuels/debtower/pkg/sloc"
)

var entries = []refcount.Entry{
	{Name: "libc6", Count: 3},
	{Name: "libssl3", Count: 2},
	{Name: "curl", Count: 1},
}

func testRun() Run {
	return NewRun("testdata/Packages", debian.BuildStats{Packages: 3, Skipped: 1})
}

func TestNewRun(t *testing.T) {
	a, b := testRun(), testRun()
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("run IDs should be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.Packages != 3 || a.Skipped != 1 || a.Source != "testdata/Packages" {
		t.Errorf("run = %+v", a)
	}
	if a.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}
}

func TestCSVSink(t *testing.T) {
	var buf strings.Builder
	s := NewCSVSink(&buf)
	if err := s.WriteCounts(context.Background(), testRun(), entries); err != nil {
		t.Fatalf("WriteCounts: %v", err)
	}
	want := "name,refcount\nlibc6,3\nlibssl3,2\ncurl,1\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	s, err := CreateCSV(path)
	if err != nil {
		t.Fatalf("CreateCSV: %v", err)
	}
	if err := s.WriteCounts(context.Background(), testRun(), nil); err != nil {
		t.Fatalf("WriteCounts: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "name,refcount\n" {
		t.Errorf("empty table = %q", data)
	}

	if _, err := CreateCSV(filepath.Join(t.TempDir(), "missing", "x.csv")); !debterrors.Is(err, debterrors.ErrCodeStorage) {
		t.Errorf("CreateCSV in missing dir error = %v", err)
	}
}

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "debtower.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_Counts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.LatestRun(ctx); !debterrors.Is(err, debterrors.ErrCodeNotFound) {
		t.Errorf("LatestRun on empty db error = %v", err)
	}

	run := testRun()
	if err := db.WriteCounts(ctx, run, entries); err != nil {
		t.Fatalf("WriteCounts: %v", err)
	}

	latest, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != run.ID || latest.Packages != 3 || latest.Skipped != 1 {
		t.Errorf("LatestRun = %+v", latest)
	}
	byID, err := db.Run(ctx, run.ID)
	if err != nil || byID.ID != run.ID || byID.Source != run.Source {
		t.Errorf("Run(%s) = %+v, %v", run.ID, byID, err)
	}
	if _, err := db.Run(ctx, "missing"); !debterrors.Is(err, debterrors.ErrCodeNotFound) {
		t.Errorf("Run(missing) error = %v, want NOT_FOUND", err)
	}

	got, err := db.ReadCounts(ctx, run.ID)
	if err != nil {
		t.Fatalf("ReadCounts: %v", err)
	}
	if !slices.Equal(got, entries) {
		t.Errorf("ReadCounts = %v, want %v", got, entries)
	}

	// rewriting a run replaces rows instead of failing on the primary key
	if err := db.WriteCounts(ctx, run, entries[:1]); err != nil {
		t.Fatalf("second WriteCounts: %v", err)
	}
	got, _ = db.ReadCounts(ctx, run.ID)
	if len(got) != 3 {
		t.Errorf("rows after rewrite = %d, want 3", len(got))
	}
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "debtower.db")

	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	run := testRun()
	if err := db.WriteCounts(ctx, run, entries); err != nil {
		t.Fatalf("WriteCounts: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, _ := db.ReadCounts(ctx, run.ID)
	if len(got) != len(entries) {
		t.Errorf("counts after reopen = %d", len(got))
	}
}

func TestSQLite_Records(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	cat, _, err := debian.ParseIndex("Package: a\nDepends: b\n\nPackage: b\n", debian.Options{})
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	var pkgs []*debian.Package
	for _, name := range cat.Names() {
		p, _ := cat.Get(name)
		pkgs = append(pkgs, p)
	}

	run := testRun()
	if err := db.WriteRecords(ctx, run, pkgs); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	var raw string
	if err := db.conn.QueryRow(`SELECT raw FROM packages WHERE run_id = ? AND name = 'a'`, run.ID).Scan(&raw); err != nil {
		t.Fatalf("query: %v", err)
	}
	if raw != "Package: a\nDepends: b" {
		t.Errorf("raw = %q", raw)
	}
}

func TestSQLite_LineCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	res := sloc.Result{Package: "hello", Lines: json.RawMessage(`{"C":{"code":10},"SUM":{"code":12}}`)}
	sum, _ := res.Summary()
	if err := db.WriteLineCounts(ctx, []sloc.Summary{sum, {Name: "empty", Raw: "{}"}}); err != nil {
		t.Fatalf("WriteLineCounts: %v", err)
	}

	var c, total int
	if err := db.conn.QueryRow(`SELECT c, total FROM line_counts WHERE name = 'hello'`).Scan(&c, &total); err != nil {
		t.Fatalf("query: %v", err)
	}
	if c != 10 || total != 12 {
		t.Errorf("c=%d total=%d", c, total)
	}
}

func TestSQLite_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	run := testRun()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertRun(ctx, tx, run); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v", err)
	}
	if _, err := db.LatestRun(ctx); !debterrors.Is(err, debterrors.ErrCodeNotFound) {
		t.Error("rolled back run should not be visible")
	}
}

type recordingSink struct {
	counts, records int
	err             error
	closed          bool
}

func (r *recordingSink) WriteCounts(context.Context, Run, []refcount.Entry) error {
	r.counts++
	return r.err
}

func (r *recordingSink) Close() error { r.closed = true; return nil }

type recordingRecordSink struct{ recordingSink }

func (r *recordingRecordSink) WriteRecords(context.Context, Run, []*debian.Package) error {
	r.records++
	return nil
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	a := &recordingSink{err: boom}
	b := &recordingRecordSink{}
	m := Multi{a, b}

	if err := m.WriteCounts(ctx, testRun(), entries); !errors.Is(err, boom) {
		t.Errorf("WriteCounts error = %v, want boom", err)
	}
	if a.counts != 1 || b.counts != 1 {
		t.Error("every sink should be written even after an error")
	}
	if err := m.WriteRecords(ctx, testRun(), nil); err != nil {
		t.Errorf("WriteRecords: %v", err)
	}
	if b.records != 1 {
		t.Error("record sink not written")
	}
	if err := m.Close(); err != nil || !a.closed || !b.closed {
		t.Error("Close should close every sink")
	}
}

func TestMongoSink(t *testing.T) {
	uri := os.Getenv("DEBTOWER_TEST_MONGODB")
	if uri == "" {
		t.Skip("DEBTOWER_TEST_MONGODB not set")
	}
	ctx := context.Background()
	s, err := NewMongoSink(ctx, uri, "debtower_test")
	if err != nil {
		t.Fatalf("NewMongoSink: %v", err)
	}
	defer s.Close()

	run := testRun()
	if err := s.WriteCounts(ctx, run, entries); err != nil {
		t.Fatalf("WriteCounts: %v", err)
	}
	got, gotEntries, err := s.ReadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if got.ID != run.ID || !slices.Equal(gotEntries, entries) {
		t.Errorf("ReadRun = %+v %v", got, gotEntries)
	}
	if _, _, err := s.ReadRun(ctx, "missing"); !debterrors.Is(err, debterrors.ErrCodeNotFound) {
		t.Errorf("missing run error = %v", err)
	}
}
