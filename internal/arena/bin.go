package arena

import (
	"unsafe"

	"github.com/hupe1980/slabgo/internal/chunk"
	"github.com/hupe1980/slabgo/internal/slab"
)

// bin holds the slabs of one size class: the active slab the fast path
// hits, plus the partial and full side lists.
//
// Padded so adjacent bins of one arena never share a cache line.
type bin struct {
	active  *slab.Slab
	partial []*slab.Slab
	full    []*slab.Slab
	_       [8]byte
}

// allocate is the fast path: one attempt against the active slab, with
// everything else behind the slow-path call.
func (b *bin) allocate(a *Arena, class int) unsafe.Pointer {
	if p := b.active.Allocate(); p != nil {
		return p
	}
	return b.allocateSlow(a, class)
}

// allocateSlow retires an exhausted active slab, revives the most
// recently touched partial slab, and only then asks for a fresh chunk.
//
//go:noinline
func (b *bin) allocateSlow(a *Arena, class int) unsafe.Pointer {
	if b.active.Valid() {
		b.full = append(b.full, b.active)
		b.active = nil
	}

	// The back of the partial list is the slab most recently freed
	// into; popping it keeps a warm chunk in the data cache.
	if n := len(b.partial); n > 0 {
		b.active = b.partial[n-1]
		b.partial = b.partial[:n-1]
		return b.active.Allocate()
	}

	base, err := a.source.AcquireChunk()
	if err != nil || base == 0 {
		return nil
	}
	b.active = slab.New(base, class)
	return b.active.Allocate()
}

// deallocate is the fast path: a single base compare against the
// active slab.
func (b *bin) deallocate(p unsafe.Pointer) {
	slabBase := uintptr(p) &^ uintptr(chunk.Mask)
	if b.active.Valid() && b.active.Base() == slabBase {
		b.active.Deallocate(p)
		return
	}
	b.deallocateSlow(p, slabBase)
}

// deallocateSlow searches the side lists. A slab found on the full list
// gains a free block and moves to partial. A pointer matching nothing
// is undefined input and is silently ignored.
//
//go:noinline
func (b *bin) deallocateSlow(p unsafe.Pointer, slabBase uintptr) {
	for _, s := range b.partial {
		if s.Base() == slabBase {
			s.Deallocate(p)
			return
		}
	}
	for i, s := range b.full {
		if s.Base() == slabBase {
			s.Deallocate(p)
			b.full = append(b.full[:i], b.full[i+1:]...)
			b.partial = append(b.partial, s)
			return
		}
	}
}
