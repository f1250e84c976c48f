// Package chunk obtains and releases chunk-sized page ranges from the
// OS. A chunk is the unit of storage behind every slab: a 2 MiB region
// whose base address is 2 MiB-aligned.
//
// The alignment is load-bearing. Every interior pointer recovers its
// slab base with a single mask (clear the low 21 bits), which is what
// keeps deallocation free of any address-to-slab lookup structure.
package chunk

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hupe1980/slabgo/internal/resource"
)

const (
	// Size is the chunk size. It matches the typical large-page size so
	// large-page backing needs no extra bookkeeping.
	Size = 2 << 20

	// Mask clears the low bits of an interior pointer, yielding the
	// base of the chunk that contains it.
	Mask = Size - 1

	// PageSize is the assumed OS page size, used only to round large
	// allocations.
	PageSize = 4096
)

// Provider maps and unmaps chunks and large regions. All methods are
// safe for concurrent use.
type Provider struct {
	res    *resource.Controller
	logger *slog.Logger
	locked atomic.Bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithController attaches a resource controller. Mapping calls reserve
// against its budget and honor its rate limit.
func WithController(c *resource.Controller) Option {
	return func(p *Provider) { p.res = c }
}

// WithLogger sets the logger used for cold-path diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a Provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire maps one chunk. The returned base is Size-aligned. Returns 0
// and an error when the kernel refuses or the budget is exhausted.
func (p *Provider) Acquire() (uintptr, error) {
	if err := p.reserve(Size); err != nil {
		return 0, err
	}
	base, err := p.mapChunk()
	if err != nil {
		p.release(Size)
		return 0, err
	}
	return base, nil
}

// Release unmaps one chunk previously returned by Acquire.
func (p *Provider) Release(base uintptr) {
	if base == 0 {
		return
	}
	p.unmapChunk(base)
	p.release(Size)
}

// LargeSize rounds a large-allocation size up to the OS page size.
func LargeSize(size int) int {
	return (size + PageSize - 1) &^ (PageSize - 1)
}

// MapLarge maps a dedicated private anonymous region for an allocation
// too big for the slab path. The region is page-aligned and spans
// LargeSize(size) bytes.
func (p *Provider) MapLarge(size int) (uintptr, error) {
	rounded := LargeSize(size)
	if err := p.reserve(rounded); err != nil {
		return 0, err
	}
	base, err := p.mapLarge(rounded)
	if err != nil {
		p.release(rounded)
		return 0, err
	}
	return base, nil
}

// UnmapLarge releases a region obtained from MapLarge. The size must be
// the one passed to MapLarge.
func (p *Provider) UnmapLarge(base uintptr, size int) {
	if base == 0 {
		return
	}
	rounded := LargeSize(size)
	p.unmapLarge(base, rounded)
	p.release(rounded)
}

// IsMemoryLocked reports whether LockMemory has succeeded.
func (p *Provider) IsMemoryLocked() bool {
	return p.locked.Load()
}

func (p *Provider) reserve(bytes int) error {
	if err := p.res.ThrottleMap(context.Background()); err != nil {
		return err
	}
	return p.res.ReserveMapped(int64(bytes))
}

func (p *Provider) release(bytes int) {
	p.res.ReleaseMapped(int64(bytes))
}
