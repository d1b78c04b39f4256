package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/mirror"
	"github.com/matzehuels/debtower/pkg/sloc"
)

const testIndex = `Package: curl
Version: 8.5.0-2
Depends: libcurl4 (= 8.5.0-2), libc6 (>= 2.34)

Package: libcurl4
Depends: libssl3 (>= 3.0.0), libc6

Package: libssl3
Depends: libc6 (>= 2.34) | libc6.1

Package: libc6
`

// newTestCLI isolates config and cache lookups in a temp directory.
func newTestCLI(t *testing.T) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return New(io.Discard, LogInfo), dir
}

func writeIndex(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "Packages")
	if err := os.WriteFile(path, []byte(testIndex), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCountCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)
	out := filepath.Join(dir, "counts.csv")
	db := filepath.Join(dir, "runs.db")

	root := c.RootCommand()
	root.SetArgs([]string{"count", "--file", index, "-o", out, "--sqlite", db, "--no-cache", "--top", "2"})
	if err := root.Execute(); err != nil {
		t.Fatalf("count: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"name,refcount", "libc6,4", "libssl3,3", "libcurl4,2", "curl,1"}
	if !slices.Equal(lines, want) {
		t.Errorf("csv = %q, want %q", lines, want)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("sqlite database not created: %v", err)
	}
}

func TestClosureCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)

	var buf bytes.Buffer
	root := c.RootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"closure", "curl", "--file", index, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("closure: %v", err)
	}

	got := strings.Fields(buf.String())
	want := []string{"curl", "libcurl4", "libssl3", "libc6"}
	if !slices.Equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
}

func TestClosureCommandAll(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)

	var buf bytes.Buffer
	root := c.RootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"closure", "--all", "--file", index, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("closure --all: %v", err)
	}

	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"curl: curl libcurl4 libssl3 libc6",
		"libc6: libc6",
		"libcurl4: libcurl4 libssl3 libc6",
		"libssl3: libssl3 libc6",
	}
	if !slices.Equal(got, want) {
		t.Errorf("closure --all =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReportCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)
	db := filepath.Join(dir, "runs.db")

	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"report", "--sqlite", db})
	if err := root.Execute(); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("report on empty db: err = %v, want NOT_FOUND", err)
	}

	root = c.RootCommand()
	root.SetArgs([]string{"count", "--file", index, "-o", "", "--sqlite", db, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("count: %v", err)
	}

	run, entries, err := c.loadRun(context.Background(), &reportOpts{sqlite: db})
	if err != nil {
		t.Fatalf("loadRun: %v", err)
	}
	if run.Packages != 4 {
		t.Errorf("run packages = %d, want 4", run.Packages)
	}
	if len(entries) != 4 || entries[0].Name != "libc6" || entries[0].Count != 4 {
		t.Errorf("entries = %v", entries)
	}

	if _, _, err := c.loadRun(context.Background(), &reportOpts{sqlite: db, run: "nope"}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown run: err = %v, want NOT_FOUND", err)
	}
	if _, _, err := c.loadRun(context.Background(), &reportOpts{mongodb: "mongodb://localhost"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("mongodb without run: err = %v, want INVALID_INPUT", err)
	}

	root = c.RootCommand()
	root.SetArgs([]string{"report", "--sqlite", db, "--top", "2"})
	if err := root.Execute(); err != nil {
		t.Errorf("report: %v", err)
	}
}

func TestClosureCommandInvalidName(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)

	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"closure", "bad name", "--file", index})
	err := root.Execute()
	if !errors.Is(err, errors.ErrCodeInvalidPackage) {
		t.Errorf("err = %v, want INVALID_PACKAGE", err)
	}
}

func TestGraphCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)
	out := filepath.Join(dir, "curl.dot")

	root := c.RootCommand()
	root.SetArgs([]string{"graph", "curl", "--file", index, "-o", out, "--counts"})
	if err := root.Execute(); err != nil {
		t.Fatalf("graph: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "digraph") || !strings.Contains(string(data), "libssl3") {
		t.Errorf("unexpected DOT output:\n%s", data)
	}
}

func TestGraphCommandUnsupportedFormat(t *testing.T) {
	c, dir := newTestCLI(t)
	index := writeIndex(t, dir)

	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"graph", "curl", "--file", index, "-o", filepath.Join(dir, "curl.png")})
	if err := root.Execute(); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestConfigFileErrors(t *testing.T) {
	c, dir := newTestCLI(t)
	cfg := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(cfg, []byte("[mirror]\nsuit = \"sid\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", cfg, "cache", "path"})
	if err := root.Execute(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestOptionsMerge(t *testing.T) {
	c, _ := newTestCLI(t)
	c.cfg.Mirror.Suite = "bookworm"
	c.cfg.Count.Workers = 3
	c.cfg.Count.DependencyFields = []string{"Pre-Depends", "Depends"}

	t.Run("config", func(t *testing.T) {
		opts := c.options(&indexFlags{})
		if opts.Source.Index.Suite != "bookworm" {
			t.Errorf("suite = %q, want bookworm", opts.Source.Index.Suite)
		}
		if opts.Workers != 3 {
			t.Errorf("workers = %d, want 3", opts.Workers)
		}
		if !slices.Equal(opts.Fields, []string{"Pre-Depends", "Depends"}) {
			t.Errorf("fields = %v", opts.Fields)
		}
		if opts.Source.Index.Kind != mirror.Packages {
			t.Errorf("kind = %v, want Packages", opts.Source.Index.Kind)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		opts := c.options(&indexFlags{suite: "sid", arch: "arm64", workers: 8, fields: []string{"Recommends"}})
		if opts.Source.Index.Suite != "sid" || opts.Source.Index.Arch != "arm64" {
			t.Errorf("index = %+v", opts.Source.Index)
		}
		if opts.Workers != 8 {
			t.Errorf("workers = %d, want 8", opts.Workers)
		}
		if !slices.Equal(opts.Fields, []string{"Recommends"}) {
			t.Errorf("fields = %v", opts.Fields)
		}
	})
}

func TestSelectSources(t *testing.T) {
	pkgs := []sloc.SourcePackage{{Name: "bash"}, {Name: "curl"}, {Name: "zlib"}, {Name: "dash"}}
	names := func(ps []sloc.SourcePackage) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return out
	}

	tests := []struct {
		name   string
		filter []string
		limit  int
		want   []string
	}{
		{"all", nil, 0, []string{"bash", "curl", "zlib", "dash"}},
		{"limit", nil, 2, []string{"bash", "curl"}},
		{"filter", []string{"dash", "curl"}, 0, []string{"curl", "dash"}},
		{"filter and limit", []string{"dash", "curl"}, 1, []string{"curl"}},
		{"limit above len", nil, 10, []string{"bash", "curl", "zlib", "dash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(pkgs)
			got := names(selectSources(in, tt.filter, tt.limit))
			if !slices.Equal(got, tt.want) {
				t.Errorf("selectSources = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlocImportCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	results := filepath.Join(dir, "result")
	line := `{"Package":"hello","Path":"pool/main/h/hello","Lines":{"header":{"n_lines":10},"C":{"nFiles":2,"blank":5,"comment":3,"code":40},"SUM":{"nFiles":2,"blank":5,"comment":3,"code":40}}}` + "\n"
	if err := os.WriteFile(results, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "sloc.db")

	root := c.RootCommand()
	root.SetArgs([]string{"sloc", "import", results, "--sqlite", db})
	if err := root.Execute(); err != nil {
		t.Fatalf("sloc import: %v", err)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestCacheClearCommand(t *testing.T) {
	c, dir := newTestCLI(t)
	root := c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	got, err := c.cfg.CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, filepath.Join(dir, "cache")) {
		t.Errorf("cache dir = %q, want under %q", got, dir)
	}
}
