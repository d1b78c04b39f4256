package sloc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Downloader saves a mirror file (path relative to the mirror root) into
// dir and returns the local path. The mirror client satisfies it.
type Downloader interface {
	Download(ctx context.Context, rel, dir string) (string, error)
}

// Surveyor drives the download, extract, count loop.
type Surveyor struct {
	Downloader Downloader
	Extractor  Extractor
	Counter    Counter
	WorkDir    string // scratch space; defaults to os.TempDir()
	Workers    int    // packages processed at once; defaults to runtime.NumCPU()
	Logger     *log.Logger
}

// Stats summarises a survey run.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

// Run surveys pkgs and calls emit once per successfully counted package.
// Per-package failures are logged and counted, not returned. An error from
// emit or cancellation of ctx stops the survey.
func (s *Surveyor) Run(ctx context.Context, pkgs []SourcePackage, emit func(Result) error) (Stats, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workDir := s.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Stats{}, err
	}

	var (
		succeeded, failed atomic.Int64
		emitMu            sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pkg := range pkgs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := s.survey(gctx, workDir, pkg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logger.Warn("survey failed", "package", pkg.Name, "error", err)
				return nil
			}
			emitMu.Lock()
			defer emitMu.Unlock()
			if err := emit(res); err != nil {
				return err
			}
			succeeded.Add(1)
			logger.Debug("surveyed", "package", pkg.Name)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return Stats{
		Total:     len(pkgs),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, err
}

func (s *Surveyor) survey(ctx context.Context, workDir string, pkg SourcePackage) (Result, error) {
	dsc := pkg.DSC()
	if dsc == "" {
		return Result{}, fmt.Errorf("no .dsc file listed")
	}

	dir, err := os.MkdirTemp(workDir, pkg.Name+"-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(dir)

	for _, rel := range pkg.Paths() {
		if _, err := s.Downloader.Download(ctx, rel, dir); err != nil {
			return Result{}, err
		}
	}

	src := filepath.Join(dir, "__source")
	if err := s.Extractor.Extract(ctx, filepath.Join(dir, dsc), src); err != nil {
		return Result{}, err
	}

	report, err := s.Counter.Count(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return Result{Package: pkg.Name, Path: pkg.Directory, Lines: report}, nil
}
