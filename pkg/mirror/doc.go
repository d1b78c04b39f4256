// Package mirror retrieves index files and pool files from a Debian
// archive mirror.
//
// A mirror lays out its metadata under dists/ and its artifacts under
// pool/. [Client.FetchIndex] downloads the compressed Packages or Sources
// index named by an [IndexRef], decompresses it, and caches the compressed
// bytes so repeated runs against the same suite do not hit the network:
//
//	c, _ := mirror.New("http://deb.debian.org/debian/", store)
//	text, err := c.FetchIndex(ctx, mirror.IndexRef{Suite: "stable", Arch: "amd64"}, false)
//
// Transient failures (transport errors, 5xx responses) are retried with
// exponential backoff. A missing file yields [ErrNotFound].
package mirror
