// Package refcount computes dependency closures over a package catalog and
// tallies how many closures each package name appears in.
//
// # Closures
//
// [Closure] walks dependency edges depth-first in pre-order. The start name
// is always the first element, even when the catalog does not know it.
// Names are recorded the moment they are first entered, so cycles end on
// their own: reaching a name a second time finds it already recorded.
// Names the catalog does not contain are recorded as leaves.
//
//	A -> B -> A      Closure(c, "A") == [A B]
//	A -> Z (absent)  Closure(c, "A") == [A Z]
//
// # Reference Counts
//
// [Aggregate] runs [Closure] for every package in the catalog and counts,
// for each name, the number of closures that contain it. A package always
// counts itself. Names referenced only as dependencies still get a count.
//
// The work is split across [Options.Workers] goroutines that each build a
// partial [Counts]; partials are merged by addition, so the result does not
// depend on scheduling.
package refcount
