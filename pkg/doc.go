// Package pkg holds the debtower libraries.
//
// The data flow of a count run:
//
//	Packages index (mirror or file)
//	         ↓
//	    [stanza] split into field records
//	         ↓
//	    [debian] parse dependencies, build the catalog
//	         ↓
//	    [refcount] closures and reference counts
//	         ↓
//	    [store] CSV, SQLite, MongoDB
//
// [pipeline] wires these steps together; [server] exposes a loaded catalog
// over HTTP; [sloc] surveys source line counts of a suite.
package pkg
