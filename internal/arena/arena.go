// Package arena implements the per-owner allocation state: one bin per
// size class, replenished from a shared chunk source.
//
// An Arena carries no locks and must be confined to a single goroutine.
// The façade in the root package enforces that contract with a shard
// lock; callers using an Arena directly get the original
// zero-contention model and take on the confinement themselves.
package arena

import (
	"unsafe"

	"github.com/hupe1980/slabgo/internal/sizeclass"
)

// ChunkSource supplies chunk-sized regions and takes them back. The
// canonical source pops the global chunk stack first and falls through
// to the OS provider; returned chunks always go to the stack, never to
// the OS.
type ChunkSource interface {
	AcquireChunk() (uintptr, error)
	ReleaseChunk(base uintptr)
}

// LargeMapper serves allocations beyond the slab classes with dedicated
// OS mappings.
type LargeMapper interface {
	MapLarge(size int) (uintptr, error)
	UnmapLarge(base uintptr, size int)
}

// Arena owns one bin per size class. The zero Arena is not usable; use
// New.
type Arena struct {
	bins   [sizeclass.NumClasses]bin
	source ChunkSource
	large  LargeMapper
}

// New creates an arena drawing chunks from source and large mappings
// from large.
func New(source ChunkSource, large LargeMapper) *Arena {
	return &Arena{source: source, large: large}
}

// Allocate returns a 16-byte-aligned block of at least size bytes, or
// nil when no memory can be obtained. Size 0 yields a minimum-size
// block.
func (a *Arena) Allocate(size int) unsafe.Pointer {
	if size < 0 {
		return nil
	}
	if sizeclass.IsLarge(size) {
		return a.allocateLarge(size)
	}
	class := sizeclass.Index(size)
	return a.bins[class].allocate(a, class)
}

// Deallocate returns a block previously obtained from Allocate with
// the same size class. A nil pointer is a no-op; a pointer this arena
// does not own is undefined input and is ignored on a best-effort
// basis.
func (a *Arena) Deallocate(p unsafe.Pointer, size int) {
	if p == nil {
		return
	}
	if sizeclass.IsLarge(size) {
		a.large.UnmapLarge(uintptr(p), size)
		return
	}
	a.bins[sizeclass.Index(size)].deallocate(p)
}

// Close returns every live chunk to the chunk source. Slabs may still
// have outstanding blocks at this point; their storage returns to
// circulation regardless, so freeing such a block afterwards is
// undefined.
func (a *Arena) Close() {
	for i := range a.bins {
		b := &a.bins[i]
		if b.active.Valid() {
			a.source.ReleaseChunk(b.active.Base())
			b.active = nil
		}
		for _, s := range b.partial {
			a.source.ReleaseChunk(s.Base())
		}
		for _, s := range b.full {
			a.source.ReleaseChunk(s.Base())
		}
		b.partial, b.full = nil, nil
	}
}

func (a *Arena) allocateLarge(size int) unsafe.Pointer {
	base, err := a.large.MapLarge(size)
	if err != nil {
		return nil
	}
	return unsafe.Pointer(base)
}

// LiveChunks counts the chunks currently backing this arena's slabs.
func (a *Arena) LiveChunks() int {
	n := 0
	for i := range a.bins {
		b := &a.bins[i]
		if b.active.Valid() {
			n++
		}
		n += len(b.partial) + len(b.full)
	}
	return n
}
