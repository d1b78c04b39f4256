package debian

import (
	"io"
	"strings"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/stanza"
)

// DefaultDependencyField is the field parsed into Package.Dependencies.
const DefaultDependencyField = "Depends"

// ErrNoRecords is returned when an index produced no indexable package.
var ErrNoRecords = errors.New(errors.ErrCodeNoRecords, "index contained no packages")

// Options configures catalog building.
type Options struct {
	// Fields lists the dependency fields to parse, in order. Their entries
	// are concatenated. Default: ["Depends"].
	Fields []string
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if len(o.Fields) == 0 {
		o.Fields = []string{DefaultDependencyField}
	}
	return o
}

// BuildStats describes one catalog build.
type BuildStats struct {
	Stanzas    int // non-empty stanzas seen
	Packages   int // packages in the resulting catalog
	Skipped    int // stanzas without a Package field
	Duplicates int // stanzas that replaced an earlier package of the same name
}

// NewPackage converts a stanza into a Package. It returns false when the
// stanza has no scalar Package field.
func NewPackage(s stanza.Stanza, opts Options) (*Package, bool) {
	opts = opts.WithDefaults()
	name := strings.TrimSpace(s.Value("Package"))
	if name == "" {
		return nil, false
	}
	p := &Package{Name: name, Fields: s.Fields, Raw: s.Raw}
	for _, f := range opts.Fields {
		v, ok := s.Get(f)
		if !ok {
			continue
		}
		p.Dependencies = append(p.Dependencies, ParseDepends(dependsText(v))...)
	}
	return p, true
}

// dependsText flattens a dependency field. A field written as "Depends:"
// followed by continuation lines is a list; its items are comma-joined.
func dependsText(v stanza.FieldValue) string {
	if v.IsList() {
		return strings.Join(v.Items(), ",")
	}
	return v.Scalar()
}

// Build constructs a catalog from parsed stanzas.
func Build(stanzas []stanza.Stanza, opts Options) (*Catalog, BuildStats) {
	b := newBuilder(opts)
	for _, s := range stanzas {
		b.add(s)
	}
	return b.finish()
}

// ParseIndex parses index text into a catalog. It returns [ErrNoRecords]
// together with the (empty) catalog and stats when nothing was indexable.
func ParseIndex(text string, opts Options) (*Catalog, BuildStats, error) {
	return ReadIndex(strings.NewReader(text), opts)
}

// ReadIndex streams an index from r into a catalog.
func ReadIndex(r io.Reader, opts Options) (*Catalog, BuildStats, error) {
	b := newBuilder(opts)
	sc := stanza.NewScanner(r)
	for sc.Scan() {
		b.add(sc.Stanza())
	}
	c, stats := b.finish()
	if err := sc.Err(); err != nil {
		return c, stats, errors.Wrap(errors.ErrCodeInvalidIndex, err, "read index")
	}
	if c.Len() == 0 {
		return c, stats, ErrNoRecords
	}
	return c, stats, nil
}

type builder struct {
	opts  Options
	cat   *Catalog
	stats BuildStats
}

func newBuilder(opts Options) *builder {
	return &builder{opts: opts.WithDefaults(), cat: NewCatalog()}
}

func (b *builder) add(s stanza.Stanza) {
	b.stats.Stanzas++
	p, ok := NewPackage(s, b.opts)
	if !ok {
		b.stats.Skipped++
		return
	}
	if b.cat.Add(p) {
		b.stats.Duplicates++
	}
}

func (b *builder) finish() (*Catalog, BuildStats) {
	b.stats.Packages = b.cat.Len()
	return b.cat, b.stats
}
