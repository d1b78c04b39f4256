package mirror

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/debtower/pkg/errors"
)

// Kind selects which index an [IndexRef] points at.
type Kind int

const (
	// Packages is the binary package index of one architecture.
	Packages Kind = iota
	// Sources is the source package index.
	Sources
)

func (k Kind) String() string {
	if k == Sources {
		return "Sources"
	}
	return "Packages"
}

// IndexRef names one index file on a mirror.
type IndexRef struct {
	Suite     string // e.g. "stable", "bookworm"
	Component string // e.g. "main"
	Arch      string // binary architecture, ignored for Sources
	Kind      Kind
}

// WithDefaults fills empty fields with stable/main/amd64.
func (r IndexRef) WithDefaults() IndexRef {
	if r.Suite == "" {
		r.Suite = "stable"
	}
	if r.Component == "" {
		r.Component = "main"
	}
	if r.Arch == "" {
		r.Arch = "amd64"
	}
	return r
}

// Path returns the index location relative to the mirror root.
func (r IndexRef) Path() string {
	r = r.WithDefaults()
	if r.Kind == Sources {
		return path.Join("dists", r.Suite, r.Component, "source", "Sources.gz")
	}
	return path.Join("dists", r.Suite, r.Component, "binary-"+r.Arch, "Packages.gz")
}

// String identifies the index in logs and run records.
func (r IndexRef) String() string {
	r = r.WithDefaults()
	if r.Kind == Sources {
		return fmt.Sprintf("%s/%s/source", r.Suite, r.Component)
	}
	return fmt.Sprintf("%s/%s/%s", r.Suite, r.Component, r.Arch)
}

// Decompress gunzips data. Multi-member archives are read to the end.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidIndex, err, "not a gzip stream")
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidIndex, err, "decompress index")
	}
	return out, nil
}

// ReadFile reads a local index file, decompressing it when the name ends
// in ".gz".
func ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", name)
	}
	if strings.HasSuffix(name, ".gz") {
		return Decompress(data)
	}
	return data, nil
}
