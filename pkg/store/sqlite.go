package store

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // pure Go driver

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
	"github.com/matzehuels/debtower/pkg/sloc"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	source     TEXT NOT NULL,
	packages   INTEGER NOT NULL,
	skipped    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS refcounts (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, name)
);
CREATE TABLE IF NOT EXISTS packages (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	raw    TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);
CREATE TABLE IF NOT EXISTS line_counts (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT NOT NULL,
	raw    TEXT NOT NULL,
	c      INTEGER NOT NULL,
	cpp    INTEGER NOT NULL,
	header INTEGER NOT NULL,
	golang INTEGER NOT NULL,
	total  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refcounts_count ON refcounts(run_id, count DESC);
`

// SQLite stores runs in a SQLite database file.
type SQLite struct {
	conn   *sql.DB
	logger *log.Logger
	path   string
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create %s", dir)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open database")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "set pragma")
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "initialize schema")
	}
	logger.Debug("database ready", "path", path)
	return &SQLite{conn: conn, logger: logger, path: path}, nil
}

// Path returns the database file path.
func (db *SQLite) Path() string { return db.path }

// Close closes the database.
func (db *SQLite) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (db *SQLite) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", "error", err, "rollback_error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "commit transaction")
	}
	return nil
}

// WriteCounts records the run and its count table.
func (db *SQLite) WriteCounts(ctx context.Context, run Run, entries []refcount.Entry) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertRun(ctx, tx, run); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO refcounts (run_id, name, count) VALUES (?, ?, ?)`)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "prepare refcount insert")
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, run.ID, e.Name, e.Count); err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "insert refcount %s", e.Name)
			}
		}
		db.logger.Debug("counts stored", "run", run.ID, "rows", len(entries))
		return nil
	})
}

// WriteRecords stores the raw stanza of every package under the run.
func (db *SQLite) WriteRecords(ctx context.Context, run Run, pkgs []*debian.Package) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertRun(ctx, tx, run); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO packages (run_id, name, raw) VALUES (?, ?, ?)`)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "prepare package insert")
		}
		defer stmt.Close()
		for _, p := range pkgs {
			if _, err := stmt.ExecContext(ctx, run.ID, p.Name, p.Raw); err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "insert package %s", p.Name)
			}
		}
		db.logger.Debug("records stored", "run", run.ID, "rows", len(pkgs))
		return nil
	})
}

// WriteLineCounts appends source line-count summaries.
func (db *SQLite) WriteLineCounts(ctx context.Context, sums []sloc.Summary) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO line_counts (name, raw, c, cpp, header, golang, total) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "prepare line count insert")
		}
		defer stmt.Close()
		for _, s := range sums {
			if _, err := stmt.ExecContext(ctx, s.Name, s.Raw, s.C, s.CPP, s.Header, s.Go, s.All); err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "insert line count %s", s.Name)
			}
		}
		return nil
	})
}

// LatestRun returns the most recently started run.
func (db *SQLite) LatestRun(ctx context.Context) (Run, error) {
	return db.queryRun(ctx, "no runs recorded",
		`SELECT id, started_at, source, packages, skipped FROM runs ORDER BY started_at DESC LIMIT 1`)
}

// Run returns the run with the given ID.
func (db *SQLite) Run(ctx context.Context, id string) (Run, error) {
	return db.queryRun(ctx, "run "+id+" not found",
		`SELECT id, started_at, source, packages, skipped FROM runs WHERE id = ?`, id)
}

func (db *SQLite) queryRun(ctx context.Context, notFound, query string, args ...any) (Run, error) {
	var r Run
	err := db.conn.QueryRowContext(ctx, query, args...).
		Scan(&r.ID, &r.StartedAt, &r.Source, &r.Packages, &r.Skipped)
	if err == sql.ErrNoRows {
		return Run{}, errors.New(errors.ErrCodeNotFound, "%s", notFound)
	}
	if err != nil {
		return Run{}, errors.Wrap(errors.ErrCodeStorage, err, "query run")
	}
	return r, nil
}

// ReadCounts returns the count table of a run, highest count first.
func (db *SQLite) ReadCounts(ctx context.Context, runID string) ([]refcount.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, count FROM refcounts WHERE run_id = ? ORDER BY count DESC, name ASC`, runID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "query counts")
	}
	defer rows.Close()

	var out []refcount.Entry
	for rows.Next() {
		var e refcount.Entry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan count")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func upsertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, source, packages, skipped) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET source = excluded.source, packages = excluded.packages, skipped = excluded.skipped`,
		run.ID, run.StartedAt, run.Source, run.Packages, run.Skipped)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert run %s", run.ID)
	}
	return nil
}

var _ RecordSink = (*SQLite)(nil)
