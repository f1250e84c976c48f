package slabgo

import (
	"math/rand/v2"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/slabgo/internal/chunk"
)

func TestAllocator_Alignment(t *testing.T) {
	al := New()
	defer al.Close()

	for _, size := range []int{0, 1, 7, 16, 24, 100, 256, 300, 4096, 65536, 65537, 1 << 20} {
		p := al.Allocate(size)
		require.NotNil(t, p, "size=%d", size)
		assert.Zero(t, uintptr(p)%16, "size=%d", size)
		al.Deallocate(p, size)
	}
}

func TestAllocator_ZeroSize(t *testing.T) {
	al := New()
	defer al.Close()

	p := al.Allocate(0)
	require.NotNil(t, p, "size 0 returns a valid block, not nil")

	// The block is a real 16-byte allocation.
	buf := unsafe.Slice((*byte)(p), 16)
	buf[0], buf[15] = 1, 2

	al.Deallocate(p, 0)
}

func TestAllocator_DeallocateNil(t *testing.T) {
	al := New()
	defer al.Close()

	al.Deallocate(nil, 64)
	al.Deallocate(nil, 1<<20)
}

func TestAllocator_ForeignPointerIgnored(t *testing.T) {
	al := New()
	defer al.Close()

	var local [64]byte
	al.Deallocate(unsafe.Pointer(&local[0]), 64)
}

func TestAllocator_WriteIntegrity(t *testing.T) {
	al := New()
	defer al.Close()

	const size = 1024
	p := al.Allocate(size)
	require.NotNil(t, p)
	defer al.Deallocate(p, size)

	buf := unsafe.Slice((*byte)(p), size)
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := range buf {
		require.Equal(t, byte(i), buf[i])
	}
}

// A 128 KiB allocation takes the large path: dedicated mapping, no
// slab state touched, and concurrent small allocations stay intact.
func TestAllocator_LargePath(t *testing.T) {
	al := New()
	defer al.Close()

	const small = 64
	smalls := make([]unsafe.Pointer, 16)
	for i := range smalls {
		smalls[i] = al.Allocate(small)
		require.NotNil(t, smalls[i])
		buf := unsafe.Slice((*byte)(smalls[i]), small)
		for j := range buf {
			buf[j] = byte(i)
		}
	}

	const size = 128 * 1024
	p := al.Allocate(size)
	require.NotNil(t, p)

	buf := unsafe.Slice((*byte)(p), size)
	for off := 0; off < size; off += chunk.PageSize {
		buf[off] = 'x'
	}
	for off := 0; off < size; off += chunk.PageSize {
		require.Equal(t, byte('x'), buf[off])
	}
	al.Deallocate(p, size)

	for i, sp := range smalls {
		sbuf := unsafe.Slice((*byte)(sp), small)
		for j := range sbuf {
			require.Equal(t, byte(i), sbuf[j], "small allocation corrupted by large path")
		}
		al.Deallocate(sp, small)
	}

	stats := al.Stats()
	assert.Equal(t, uint64(1), stats.LargeAllocs)
	assert.Equal(t, uint64(1), stats.LargeFrees)
}

func TestAllocator_ClassBoundary(t *testing.T) {
	al := New()
	defer al.Close()

	// 65536 is the last slab class; 65537 must go large.
	p1 := al.Allocate(65536)
	require.NotNil(t, p1)
	assert.Zero(t, al.Stats().LargeAllocs)

	p2 := al.Allocate(65537)
	require.NotNil(t, p2)
	assert.Equal(t, uint64(1), al.Stats().LargeAllocs)

	al.Deallocate(p1, 65536)
	al.Deallocate(p2, 65537)
}

func TestAllocator_ChunkReuseThroughStack(t *testing.T) {
	al := New()
	defer al.Close()

	ar := al.NewArena()
	p := ar.Allocate(64)
	require.NotNil(t, p)
	ar.Deallocate(p, 64)
	ar.Close()

	require.GreaterOrEqual(t, al.StackSize(), 1, "closed arena's chunk rests on the global stack")

	// The next allocation revives the chunk instead of mapping.
	q := al.Allocate(64)
	require.NotNil(t, q)
	al.Deallocate(q, 64)

	stats := al.Stats()
	assert.Equal(t, uint64(1), stats.ChunksMapped)
	assert.Equal(t, uint64(1), stats.ChunksReused)
}

// Scenario: four goroutines, 10 000 mixed-size operations in total,
// every allocation freed; afterwards the mapped and released chunk
// counts balance.
func TestAllocator_ConcurrentMixedWorkload(t *testing.T) {
	al := New()

	const (
		goroutines = 4
		opsPer     = 2500
	)

	var g errgroup.Group
	for id := 0; id < goroutines; id++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(id), 42))
			type allocation struct {
				ptr  unsafe.Pointer
				size int
				tag  byte
			}
			var live []allocation

			for op := 0; op < opsPer; op++ {
				if len(live) > 0 && rng.IntN(2) == 0 {
					i := rng.IntN(len(live))
					a := live[i]
					buf := unsafe.Slice((*byte)(a.ptr), a.size)
					for _, b := range buf {
						if b != a.tag {
							return assert.AnError
						}
					}
					al.Deallocate(a.ptr, a.size)
					live = append(live[:i], live[i+1:]...)
					continue
				}

				size := 16 + rng.IntN(1009)
				p := al.Allocate(size)
				if p == nil {
					return assert.AnError
				}
				tag := byte(rng.Uint32())
				buf := unsafe.Slice((*byte)(p), size)
				for i := range buf {
					buf[i] = tag
				}
				live = append(live, allocation{ptr: p, size: size, tag: tag})
			}

			for _, a := range live {
				buf := unsafe.Slice((*byte)(a.ptr), a.size)
				for _, b := range buf {
					if b != a.tag {
						return assert.AnError
					}
				}
				al.Deallocate(a.ptr, a.size)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	al.Close()
	stats := al.Stats()
	assert.Equal(t, stats.ChunksMapped, stats.ChunksReleased, "every mapped chunk unmapped at quiescence")
	assert.Zero(t, stats.OOMs)
}

// No two concurrently live pointers alias: every goroutine stamps its
// blocks with a unique word and verifies it before freeing.
func TestAllocator_NoAliasing(t *testing.T) {
	al := New()
	defer al.Close()

	const (
		goroutines = 8
		rounds     = 500
	)

	var g errgroup.Group
	for id := 0; id < goroutines; id++ {
		stamp := uint64(id + 1)
		g.Go(func() error {
			for r := 0; r < rounds; r++ {
				p := al.Allocate(64)
				if p == nil {
					return assert.AnError
				}
				*(*uint64)(p) = stamp
				if *(*uint64)(p) != stamp {
					return assert.AnError
				}
				al.Deallocate(p, 64)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestAllocator_MappedBytesLimit(t *testing.T) {
	al := New(WithMappedBytesLimit(chunk.Size))
	defer al.Close()

	// First chunk fits the budget.
	p := al.Allocate(64)
	require.NotNil(t, p)

	// A second class needs a second chunk and must fail as OOM.
	assert.Nil(t, al.Allocate(1024))
	assert.NotZero(t, al.Stats().OOMs)

	al.Deallocate(p, 64)
}

func TestAllocator_StatsString(t *testing.T) {
	al := New()
	defer al.Close()

	p := al.Allocate(32)
	require.NotNil(t, p)
	al.Deallocate(p, 32)

	s := al.Stats().String()
	assert.Contains(t, s, "Allocator{")
	assert.Contains(t, s, "mapped")
}

func TestArenaHandle(t *testing.T) {
	al := New()
	defer al.Close()

	ar := al.NewArena()
	defer ar.Close()

	p := ar.Allocate(128)
	require.NotNil(t, p)
	ar.Deallocate(p, 128)

	// LIFO: the freed block comes back first.
	assert.Equal(t, p, ar.Allocate(128))
}

func TestInitialize(t *testing.T) {
	al := New(WithLogger(NoopLogger()))
	defer al.Close()

	// Locking may fail without privileges; Initialize must not panic
	// or abort either way.
	al.Initialize()
}

func TestPackageLevelAPI(t *testing.T) {
	Initialize()

	p := Allocate(64)
	require.NotNil(t, p)
	Deallocate(p, 64)

	assert.Same(t, Default(), Default())
}
