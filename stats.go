package slabgo

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/slabgo/internal/chunk"
)

// Stats is a point-in-time snapshot of allocator activity. Counters are
// cumulative over the allocator's lifetime.
type Stats struct {
	ChunksMapped   uint64 // chunks obtained from the OS
	ChunksReused   uint64 // chunks revived from the global stack
	ChunksRecycled uint64 // chunks pushed back to the global stack
	ChunksReleased uint64 // chunks unmapped (Close only)
	LargeAllocs    uint64
	LargeFrees     uint64
	LargeBytes     uint64 // cumulative bytes mapped on the large path
	OOMs           uint64
}

type atomicStats struct {
	chunksMapped   atomic.Uint64
	chunksReused   atomic.Uint64
	chunksRecycled atomic.Uint64
	chunksReleased atomic.Uint64
	largeAllocs    atomic.Uint64
	largeFrees     atomic.Uint64
	largeBytes     atomic.Uint64
	ooms           atomic.Uint64
}

func (s *atomicStats) snapshot() Stats {
	return Stats{
		ChunksMapped:   s.chunksMapped.Load(),
		ChunksReused:   s.chunksReused.Load(),
		ChunksRecycled: s.chunksRecycled.Load(),
		ChunksReleased: s.chunksReleased.Load(),
		LargeAllocs:    s.largeAllocs.Load(),
		LargeFrees:     s.largeFrees.Load(),
		LargeBytes:     s.largeBytes.Load(),
		OOMs:           s.ooms.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Allocator{chunks: %d mapped (%s), %d reused, %d recycled, large: %d/%d (%s), oom: %d}",
		s.ChunksMapped,
		humanize.IBytes(s.ChunksMapped*chunk.Size),
		s.ChunksReused,
		s.ChunksRecycled,
		s.LargeAllocs,
		s.LargeFrees,
		humanize.IBytes(s.LargeBytes),
		s.OOMs,
	)
}
