package refcount

// Catalog is the read-only view of a package index needed by this package.
// [*debian.Catalog] implements it.
//
// [*debian.Catalog]: github.com/matzehuels/debtower/pkg/debian.Catalog
type Catalog interface {
	// Names returns every package name in the catalog.
	Names() []string
	// DependencyNames returns the direct dependency names of name in field
	// order, and false when name is not in the catalog.
	DependencyNames(name string) ([]string, bool)
}

// frame is one level of the explicit depth-first stack.
type frame struct {
	deps []string
	next int
}

// Closure returns start followed by every name reachable from it, in
// depth-first pre-order, each name exactly once.
func Closure(c Catalog, start string) []string {
	order := []string{start}
	seen := map[string]struct{}{start: {}}

	deps, _ := c.DependencyNames(start)
	stack := []frame{{deps: deps}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		name := top.deps[top.next]
		top.next++

		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)

		deps, _ := c.DependencyNames(name)
		stack = append(stack, frame{deps: deps})
	}
	return order
}
