// Package slabgo provides a high-performance, thread-caching slab
// allocator for off-heap memory.
//
// Requests up to 64 KiB are rounded into one of 24 size classes and
// served from per-shard slabs in amortized constant time; larger
// requests receive dedicated OS mappings. Freed chunks circulate
// through a lock-free global stack instead of returning to the kernel,
// so churning workloads do not thrash mmap.
//
// # Quick Start
//
// Process-wide API:
//
//	slabgo.Initialize() // optional: pin pages in RAM
//
//	p := slabgo.Allocate(64)
//	defer slabgo.Deallocate(p, 64)
//
// Typed handle for containers:
//
//	a := slabgo.NewTypedAllocator[uint64](nil)
//	ptr, err := a.AllocateN(1024)
//	defer a.DeallocateN(ptr, 1024)
//
// Dedicated worker arena (zero contention, single goroutine only):
//
//	al := slabgo.New()
//	ar := al.NewArena()
//	defer ar.Close()
//
// # Sized Delete
//
// Blocks carry no headers. Deallocate needs the size of the original
// request so it can recover the size class; passing a size from a
// different class is undefined. Containers already remember their
// element counts, which makes TypedAllocator the natural consumer.
//
// # Memory Model
//
// The returned storage is outside the Go heap. It is never scanned by
// the garbage collector: do not store Go pointers in it.
//
// Unlike the classic thread-local design, deallocation may happen on
// any goroutine: every chunk is registered to its owning shard, and a
// free routes to that shard under its lock. Pointers the allocator does
// not own are ignored.
//
// # Build Tags
//
// Building with -tags largepages backs chunks with 2 MiB huge pages on
// Linux when available, falling back silently to ordinary pages.
package slabgo
