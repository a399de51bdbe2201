// Package cache defines the path-addressed disk store behind the full-page
// cache. Every cache path (an HTTP path such as /sandbox/info) maps onto a
// directory under the storage root holding a single index.html content file,
// so listing, single removal and recursive removal reuse plain directory
// operations. Physical I/O goes through the Finder collaborator, backed by
// afero so tests can swap in memory or read-only filesystems.
package cache
