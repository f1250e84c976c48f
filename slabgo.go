package slabgo

import (
	"math/bits"
	"math/rand/v2"
	"runtime"
	"sync"
	"unsafe"

	"github.com/hupe1980/slabgo/internal/arena"
	"github.com/hupe1980/slabgo/internal/chunk"
	"github.com/hupe1980/slabgo/internal/chunkstack"
	"github.com/hupe1980/slabgo/internal/resource"
	"github.com/hupe1980/slabgo/internal/sizeclass"
)

// Allocator is the process-wide allocator: a power-of-two table of
// arena shards over one global chunk stack and one OS chunk provider.
//
// Allocation picks an uncontended shard; deallocation routes to the
// shard that owns the pointer's chunk, so blocks may be freed from any
// goroutine.
type Allocator struct {
	shards   []*shard
	mask     uint64
	stack    *chunkstack.Stack
	provider *chunk.Provider
	owners   sync.Map // chunk base (uintptr) -> *shard
	stats    atomicStats
	logger   *Logger
}

// shard pairs one arena with the lock that enforces its single-owner
// contract at the façade boundary. Padded to a cache line.
type shard struct {
	mu    sync.Mutex
	arena *arena.Arena
	_     [48]byte
}

// New creates an Allocator. No memory is mapped until the first
// allocation.
func New(opts ...Option) *Allocator {
	cfg := config{
		logger: NoopLogger(),
		shards: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shards < 1 {
		cfg.shards = 1
	}
	n := 1 << bits.Len(uint(cfg.shards-1))

	var res *resource.Controller
	if cfg.mappedBytesLimit > 0 || cfg.mapsPerSec > 0 {
		res = resource.NewController(resource.Config{
			MappedBytesLimit: cfg.mappedBytesLimit,
			MapsPerSec:       cfg.mapsPerSec,
		})
	}

	al := &Allocator{
		shards: make([]*shard, n),
		mask:   uint64(n - 1),
		stack:  chunkstack.New(),
		logger: cfg.logger,
	}
	al.provider = chunk.NewProvider(
		chunk.WithController(res),
		chunk.WithLogger(cfg.logger.Logger),
	)
	for i := range al.shards {
		sh := &shard{}
		sh.arena = arena.New(&stackSource{al: al, sh: sh}, al.provider)
		al.shards[i] = sh
	}
	return al
}

// Allocate returns 16-byte-aligned storage of at least size bytes, or
// nil when no memory can be obtained. Size 0 returns a valid
// minimum-size block distinct from nil.
func (al *Allocator) Allocate(size int) unsafe.Pointer {
	if size < 0 {
		return nil
	}
	if sizeclass.IsLarge(size) {
		return al.allocateLarge(size)
	}
	sh := al.lockShard()
	p := sh.arena.Allocate(size)
	sh.mu.Unlock()
	if p == nil {
		al.stats.ooms.Add(1)
	}
	return p
}

// Deallocate releases storage previously returned by Allocate for the
// same size class. ptr == nil is a no-op; a pointer the allocator does
// not own is silently ignored. Passing a size whose class differs from
// the original request is undefined.
func (al *Allocator) Deallocate(ptr unsafe.Pointer, size int) {
	if ptr == nil {
		return
	}
	if sizeclass.IsLarge(size) {
		al.provider.UnmapLarge(uintptr(ptr), size)
		al.stats.largeFrees.Add(1)
		return
	}
	base := uintptr(ptr) &^ uintptr(chunk.Mask)
	v, ok := al.owners.Load(base)
	if !ok {
		return
	}
	sh := v.(*shard)
	sh.mu.Lock()
	sh.arena.Deallocate(ptr, size)
	sh.mu.Unlock()
}

// Initialize attempts to lock the process's pages in RAM so the hot
// path never takes a major fault. Failure is logged and otherwise
// harmless.
func (al *Allocator) Initialize() {
	err := al.provider.LockMemory()
	al.logger.LogInitialize(al.provider.IsMemoryLocked(), err)
}

// Stats returns a snapshot of allocator counters.
func (al *Allocator) Stats() Stats {
	return al.stats.snapshot()
}

// StackSize returns the approximate number of chunks resting on the
// global stack. Informational only.
func (al *Allocator) StackSize() int {
	return al.stack.ApproximateSize()
}

// Close returns every shard's chunks to the global stack and then
// unmaps the stack's contents. The allocator must be quiescent: no
// concurrent allocations, and every large allocation already freed.
// Outstanding slab blocks are abandoned.
func (al *Allocator) Close() {
	for _, sh := range al.shards {
		sh.mu.Lock()
		sh.arena.Close()
		sh.mu.Unlock()
	}
	for {
		base := al.stack.Pop()
		if base == 0 {
			break
		}
		al.provider.Release(base)
		al.stats.chunksReleased.Add(1)
	}
}

func (al *Allocator) allocateLarge(size int) unsafe.Pointer {
	base, err := al.provider.MapLarge(size)
	if err != nil {
		al.stats.ooms.Add(1)
		return nil
	}
	al.stats.largeAllocs.Add(1)
	al.stats.largeBytes.Add(uint64(chunk.LargeSize(size)))
	return unsafe.Pointer(base)
}

// lockShard locks and returns an arena shard, probing for an
// uncontended one before blocking.
func (al *Allocator) lockShard() *shard {
	start := rand.Uint64()
	for i := uint64(0); i < uint64(len(al.shards)); i++ {
		sh := al.shards[(start+i)&al.mask]
		if sh.mu.TryLock() {
			return sh
		}
	}
	sh := al.shards[start&al.mask]
	sh.mu.Lock()
	return sh
}

// stackSource is the canonical ChunkSource: pop the global stack, fall
// through to the OS provider, and always push back to the stack. When
// bound to a shard it also maintains the owner table that routes
// cross-goroutine frees.
type stackSource struct {
	al *Allocator
	sh *shard // nil for standalone arenas
}

func (s *stackSource) AcquireChunk() (uintptr, error) {
	al := s.al
	base := al.stack.Pop()
	if base != 0 {
		al.stats.chunksReused.Add(1)
	} else {
		var err error
		base, err = al.provider.Acquire()
		if err != nil {
			return 0, err
		}
		al.stats.chunksMapped.Add(1)
	}
	if s.sh != nil {
		al.owners.Store(base, s.sh)
	}
	return base, nil
}

func (s *stackSource) ReleaseChunk(base uintptr) {
	if s.sh != nil {
		s.al.owners.Delete(base)
	}
	s.al.stats.chunksRecycled.Add(1)
	s.al.stack.Push(base)
}

// Arena is a dedicated allocation context with the original
// zero-contention contract: it must be confined to a single goroutine
// and carries no locks. Blocks allocated from an Arena must be freed
// through the same Arena; Close returns its chunks to the global stack
// for other arenas to reuse.
type Arena struct {
	inner *arena.Arena
}

// NewArena creates a single-goroutine arena drawing from this
// allocator's chunk stack and provider.
func (al *Allocator) NewArena() *Arena {
	return &Arena{inner: arena.New(&stackSource{al: al}, al.provider)}
}

// Allocate returns 16-byte-aligned storage of at least size bytes, or
// nil on OOM.
func (a *Arena) Allocate(size int) unsafe.Pointer {
	return a.inner.Allocate(size)
}

// Deallocate releases a block allocated from this arena with the same
// size class.
func (a *Arena) Deallocate(ptr unsafe.Pointer, size int) {
	a.inner.Deallocate(ptr, size)
}

// Close returns the arena's chunks to the global stack. The arena must
// not be used afterwards.
func (a *Arena) Close() {
	a.inner.Close()
}

var (
	defaultOnce sync.Once
	defaultAl   *Allocator
)

// Default returns the process-wide allocator used by the package-level
// functions.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultAl = New()
	})
	return defaultAl
}

// Allocate allocates from the process-wide allocator.
func Allocate(size int) unsafe.Pointer {
	return Default().Allocate(size)
}

// Deallocate frees into the process-wide allocator.
func Deallocate(ptr unsafe.Pointer, size int) {
	Default().Deallocate(ptr, size)
}

// Initialize performs optional process-wide setup: it attempts to lock
// pages in memory.
func Initialize() {
	Default().Initialize()
}
