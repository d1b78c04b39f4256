package debian

import (
	"regexp"
	"strings"
)

// Dependency is one entry of a dependency field.
type Dependency struct {
	Name    string `json:"name"`
	Arch    string `json:"arch,omitempty"`    // architecture qualifier without the colon, e.g. "amd64"
	Version string `json:"version,omitempty"` // constraint inside the parentheses, e.g. ">= 2.17"
}

// String renders d in index syntax.
func (d Dependency) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if d.Arch != "" {
		b.WriteString(":" + d.Arch)
	}
	if d.Version != "" {
		b.WriteString(" (" + d.Version + ")")
	}
	return b.String()
}

// depRE splits an item into name, :arch, (version) and a trailing
// "| alternatives" part that is matched only to be dropped.
var depRE = regexp.MustCompile(`^(.+?)(?::(\S+?))?(?:\s*\(([^)]*)\))?(?:\s*\|.*)?$`)

// ParseDepends parses a comma-separated dependency field value.
// Empty items (e.g. from a trailing comma) are skipped.
func ParseDepends(value string) []Dependency {
	var out []Dependency
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, ParseDependency(item))
	}
	return out
}

// ParseDependency parses a single dependency item. It never fails: an item
// that does not match the usual shape becomes a Dependency named after the
// whole trimmed item.
func ParseDependency(item string) Dependency {
	item = strings.TrimSpace(item)
	m := depRE.FindStringSubmatch(item)
	if m == nil {
		return Dependency{Name: item}
	}
	d := Dependency{
		Name:    strings.TrimSpace(m[1]),
		Arch:    strings.TrimSpace(m[2]),
		Version: strings.TrimSpace(m[3]),
	}
	if d.Name == "" {
		return Dependency{Name: item}
	}
	return d
}
