package sloc

import (
	"io"
	"path"
	"strings"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/stanza"
)

// SourcePackage is one entry of a Sources index.
type SourcePackage struct {
	Name      string   `json:"name"`
	Directory string   `json:"directory"` // pool directory, e.g. "pool/main/h/hello"
	Files     []string `json:"files"`     // file names inside Directory
}

// Paths returns each file's location relative to the mirror root.
func (p SourcePackage) Paths() []string {
	out := make([]string, len(p.Files))
	for i, f := range p.Files {
		out[i] = path.Join(p.Directory, f)
	}
	return out
}

// DSC returns the name of the package's .dsc control file, or "".
func (p SourcePackage) DSC() string {
	for _, f := range p.Files {
		if strings.HasSuffix(f, ".dsc") {
			return f
		}
	}
	return ""
}

// ParseSources reads a Sources index. Stanzas without a Package or
// Directory field are skipped.
func ParseSources(r io.Reader) ([]SourcePackage, error) {
	var pkgs []SourcePackage
	sc := stanza.NewScanner(r)
	for sc.Scan() {
		if p, ok := sourceFromStanza(sc.Stanza()); ok {
			pkgs = append(pkgs, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidIndex, err, "read sources index")
	}
	return pkgs, nil
}

func sourceFromStanza(s stanza.Stanza) (SourcePackage, bool) {
	p := SourcePackage{Name: s.Value("Package"), Directory: s.Value("Directory")}
	if p.Name == "" || p.Directory == "" {
		return p, false
	}
	files, _ := s.Get("Files")
	for _, line := range files.Items() {
		// "<md5> <size> <name>"
		if f := strings.Fields(line); len(f) >= 3 {
			p.Files = append(p.Files, f[2])
		}
	}
	return p, true
}
