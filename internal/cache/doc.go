// Package cache keeps synthesized audio on disk so that reading the same
// text with the same engine again skips synthesis. Entries are zstd
// compressed when that makes them smaller and the least recently used
// ones are evicted once the capacity is reached.
package cache
