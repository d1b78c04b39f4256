// Package sloc surveys source code size across a Debian suite.
//
// The survey reads a Sources index ([ParseSources]), downloads each source
// package's files from the mirror, unpacks it with dpkg-source, counts
// lines with cloc, and emits one [Result] per package. Results are written
// as JSON lines so long surveys can be resumed and later imported into
// SQLite with [Result.Summary].
//
// The three external steps sit behind small interfaces ([Downloader],
// [Extractor], [Counter]) so the survey loop can be tested without the
// network or the Debian toolchain.
package sloc
