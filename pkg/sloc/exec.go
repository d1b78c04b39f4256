package sloc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Extractor unpacks a source package described by a .dsc file into dest.
type Extractor interface {
	Extract(ctx context.Context, dscPath, dest string) error
}

// Counter measures the source tree at dir and returns a cloc-style JSON
// report.
type Counter interface {
	Count(ctx context.Context, dir string) (json.RawMessage, error)
}

// DpkgSource extracts packages with dpkg-source.
type DpkgSource struct {
	Binary string // defaults to "dpkg-source"
}

// Extract runs `dpkg-source --no-check -x <dsc> <dest>`.
func (d DpkgSource) Extract(ctx context.Context, dscPath, dest string) error {
	return run(ctx, nil, or(d.Binary, "dpkg-source"), "--no-check", "-x", dscPath, dest)
}

// Cloc counts lines with cloc.
type Cloc struct {
	Binary string // defaults to "cloc"
}

// Count runs `cloc --json --quiet <dir>`. A tree without recognised source
// files yields an empty report.
func (c Cloc) Count(ctx context.Context, dir string) (json.RawMessage, error) {
	var out bytes.Buffer
	if err := run(ctx, &out, or(c.Binary, "cloc"), "--json", "--quiet", dir); err != nil {
		return nil, err
	}
	b := bytes.TrimSpace(out.Bytes())
	if len(b) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("cloc produced invalid JSON")
	}
	return json.RawMessage(b), nil
}

func run(ctx context.Context, stdout *bytes.Buffer, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
