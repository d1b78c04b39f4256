package debian

import (
	"maps"
	"slices"

	"github.com/matzehuels/debtower/pkg/stanza"
)

// Package is one indexed record.
type Package struct {
	Name         string
	Fields       map[string]stanza.FieldValue
	Dependencies []Dependency
	Raw          string
}

// Field returns the scalar value of a field, or "" if absent or a list.
func (p *Package) Field(key string) string {
	return p.Fields[key].Scalar()
}

// DependencyNames returns the dependency names in field order.
func (p *Package) DependencyNames() []string {
	names := make([]string, len(p.Dependencies))
	for i, d := range p.Dependencies {
		names[i] = d.Name
	}
	return names
}

// Equal reports whether two packages carry the same data.
func (p *Package) Equal(o *Package) bool {
	return p.Name == o.Name &&
		p.Raw == o.Raw &&
		slices.Equal(p.Dependencies, o.Dependencies) &&
		maps.EqualFunc(p.Fields, o.Fields, stanza.FieldValue.Equal)
}

// Catalog maps package names to records.
type Catalog struct {
	pkgs map[string]*Package
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{pkgs: make(map[string]*Package)}
}

// Add inserts p, replacing any package with the same name.
// It reports whether a previous entry was replaced.
func (c *Catalog) Add(p *Package) (replaced bool) {
	_, replaced = c.pkgs[p.Name]
	c.pkgs[p.Name] = p
	return replaced
}

// Get returns the package called name.
func (c *Catalog) Get(name string) (*Package, bool) {
	p, ok := c.pkgs[name]
	return p, ok
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.pkgs[name]
	return ok
}

// Len returns the number of packages.
func (c *Catalog) Len() int { return len(c.pkgs) }

// Names returns all package names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.pkgs))
}

// DependencyNames returns the dependency names of name in field order, and
// false when the catalog has no such package.
func (c *Catalog) DependencyNames(name string) ([]string, bool) {
	p, ok := c.pkgs[name]
	if !ok {
		return nil, false
	}
	return p.DependencyNames(), true
}

// Equal reports whether two catalogs hold equal packages under the same names.
func (c *Catalog) Equal(o *Catalog) bool {
	return maps.EqualFunc(c.pkgs, o.pkgs, (*Package).Equal)
}
