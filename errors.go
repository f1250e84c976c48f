package slabgo

import "errors"

var (
	// ErrOutOfMemory is returned by TypedAllocator when the OS refuses
	// more memory or the configured budget is exhausted.
	ErrOutOfMemory = errors.New("slabgo: out of memory")
)
