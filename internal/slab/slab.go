// Package slab carves one chunk into equally sized blocks of a single
// size class and serves them in O(1) through an embedded free list.
//
// A free block's first pointer-sized word links to the next free block;
// an allocated block belongs entirely to the caller. An occupancy
// bitmap shadows the free list for invariant checks and diagnostics.
//
// Slabs are single-owner: only the goroutine driving the owning arena
// may touch one.
package slab

import (
	"unsafe"

	"github.com/hupe1980/slabgo/internal/bitmap"
	"github.com/hupe1980/slabgo/internal/chunk"
	"github.com/hupe1980/slabgo/internal/sizeclass"
)

// Slab is the metadata for one chunk carved for one size class. A nil
// *Slab is the invalid handle: every query returns the absorbing
// answer (Empty and Full are true, Contains is false, Allocate is nil).
type Slab struct {
	base      uintptr
	blockSize uintptr
	class     int
	freeHead  uintptr
	allocated int
	occupancy bitmap.Bitmap
}

// BlocksFor returns the number of blocks a slab of the given class
// carves out of one chunk.
func BlocksFor(class int) int {
	return chunk.Size / sizeclass.BlockSize(class)
}

// New builds a slab of the given class over a chunk. The free list is
// threaded through the blocks in ascending address order and the
// bitmap starts clear.
func New(base uintptr, class int) *Slab {
	blockSize := uintptr(sizeclass.BlockSize(class))
	n := uintptr(chunk.Size) / blockSize

	for i := uintptr(0); i < n-1; i++ {
		*(*uintptr)(unsafe.Pointer(base + i*blockSize)) = base + (i+1)*blockSize
	}
	*(*uintptr)(unsafe.Pointer(base + (n-1)*blockSize)) = 0

	return &Slab{
		base:      base,
		blockSize: blockSize,
		class:     class,
		freeHead:  base,
		occupancy: bitmap.New(int(n)),
	}
}

// Valid reports whether the handle refers to a slab.
func (s *Slab) Valid() bool {
	return s != nil
}

// Allocate pops the free-list head, or returns nil when the slab is
// full.
func (s *Slab) Allocate() unsafe.Pointer {
	if s == nil || s.freeHead == 0 {
		return nil
	}
	block := s.freeHead
	s.freeHead = *(*uintptr)(unsafe.Pointer(block))
	s.occupancy.Set(s.blockIndex(block))
	s.allocated++
	return unsafe.Pointer(block)
}

// Deallocate pushes a block back onto the free list. The pointer must
// lie inside this slab's chunk; anything else is ignored.
func (s *Slab) Deallocate(p unsafe.Pointer) {
	if s == nil || p == nil || !s.Contains(p) {
		return
	}
	addr := uintptr(p)
	s.occupancy.Clear(s.blockIndex(addr))
	*(*uintptr)(unsafe.Pointer(addr)) = s.freeHead
	s.freeHead = addr
	s.allocated--
}

// Empty reports whether no blocks are outstanding.
func (s *Slab) Empty() bool {
	return s == nil || s.allocated == 0
}

// Full reports whether no blocks are free.
func (s *Slab) Full() bool {
	return s == nil || s.freeHead == 0
}

// Contains reports whether p lies inside this slab's chunk.
func (s *Slab) Contains(p unsafe.Pointer) bool {
	if s == nil {
		return false
	}
	addr := uintptr(p)
	return addr >= s.base && addr < s.base+chunk.Size
}

// Base returns the chunk base, or 0 for the invalid handle.
func (s *Slab) Base() uintptr {
	if s == nil {
		return 0
	}
	return s.base
}

// Class returns the slab's size class.
func (s *Slab) Class() int {
	if s == nil {
		return -1
	}
	return s.class
}

// BlockSize returns the block size in bytes.
func (s *Slab) BlockSize() int {
	if s == nil {
		return 0
	}
	return int(s.blockSize)
}

// UsedBlocks returns the number of outstanding blocks.
func (s *Slab) UsedBlocks() int {
	if s == nil {
		return 0
	}
	return s.allocated
}

// FreeBlocks returns the number of free blocks.
func (s *Slab) FreeBlocks() int {
	if s == nil {
		return 0
	}
	return s.occupancy.Len() - s.allocated
}

// Occupancy exposes the occupancy bitmap for diagnostics.
func (s *Slab) Occupancy() *bitmap.Bitmap {
	return &s.occupancy
}

func (s *Slab) blockIndex(addr uintptr) int {
	return int((addr - s.base) / s.blockSize)
}
