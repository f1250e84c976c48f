package slabgo

// Option is a configuration option for an Allocator.
type Option func(*config)

type config struct {
	logger           *Logger
	shards           int
	mappedBytesLimit int64
	mapsPerSec       int64
}

// WithLogger sets the logger. Defaults to a no-op logger; the hot path
// never logs regardless.
func WithLogger(l *Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithShards fixes the number of arena shards. Defaults to GOMAXPROCS
// rounded up to a power of two.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithMappedBytesLimit caps the total memory mapped from the OS.
// Allocations past the cap fail as out of memory. 0 means unlimited.
func WithMappedBytesLimit(limit int64) Option {
	return func(c *config) { c.mappedBytesLimit = limit }
}

// WithMapsPerSec limits how many mapping calls per second may hit the
// kernel. 0 means unlimited.
func WithMapsPerSec(n int64) Option {
	return func(c *config) { c.mapsPerSec = n }
}
