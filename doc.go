// Package pagecache holds the domain types shared by the page-cache
// TTL monitor, its sample store and the command line.
//
// The measurement itself lives in package residency. Package monitor
// uses it to estimate how long a freshly written page survives in the
// page cache, and package store persists what the monitor observes.
package pagecache
