package refcount

import (
	"cmp"
	"slices"
)

// Counts maps a package name to the number of closures containing it.
type Counts map[string]int

// Entry is one row of a reference count table.
type Entry struct {
	Name  string `json:"name" bson:"name"`
	Count int    `json:"count" bson:"count"`
}

// Add tallies every name of one closure.
func (c Counts) Add(closure []string) {
	for _, name := range closure {
		c[name]++
	}
}

// Merge adds all counts of o into c.
func (c Counts) Merge(o Counts) {
	for name, n := range o {
		c[name] += n
	}
}

// Sorted returns all entries by descending count, ties broken by name.
func (c Counts) Sorted() []Entry {
	entries := make([]Entry, 0, len(c))
	for name, n := range c {
		entries = append(entries, Entry{Name: name, Count: n})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries
}

// Top returns the n highest entries of [Counts.Sorted]. A non-positive n
// returns all entries.
func (c Counts) Top(n int) []Entry {
	entries := c.Sorted()
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
