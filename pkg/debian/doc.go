// Package debian turns parsed index stanzas into a keyed catalog of Debian
// packages with structured dependency lists.
//
// # Dependency Expressions
//
// A dependency field such as
//
//	Depends: libc6:amd64 (>= 2.17), libssl1.1, default-mta | mail-transport-agent
//
// is split on commas and each item becomes a [Dependency] with a name, an
// optional architecture qualifier and an optional version constraint. Only
// the first of several "|" alternatives is kept. Constraints are recorded
// as text; nothing here decides whether they are satisfiable.
//
// Items that do not fit the expected shape degrade to a [Dependency] whose
// Name is the whole trimmed item, so one odd entry never spoils a package.
//
// # Catalog
//
// [Build] and [ReadIndex] produce a [Catalog]: a read-only map from package
// name to [*Package]. Stanzas without a "Package" field cannot be indexed
// and are skipped; [BuildStats] reports how many. When two stanzas share a
// name the later one wins.
//
// An input that yields no packages at all is reported as [ErrNoRecords],
// which carries the NO_RECORDS code from [github.com/matzehuels/debtower/pkg/errors].
//
// A Catalog is never mutated after it is built, so it may be shared by
// any number of goroutines computing closures.
package debian
