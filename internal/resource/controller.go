// Package resource enforces process-wide budgets on OS memory
// acquisition. It tracks every byte the allocator maps and can cap the
// total, turning runaway workloads into ordinary out-of-memory returns
// instead of kernel OOM kills.
package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed
// the configured mapped-bytes limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MappedBytesLimit is the hard cap on memory mapped from the OS.
	// If 0, no limit is enforced (only tracking).
	MappedBytesLimit int64

	// MapsPerSec limits how many mapping calls per second may hit the
	// kernel. Populated mappings fault their pages up front; limiting
	// the rate smooths the resulting latency spikes. If 0, unlimited.
	MapsPerSec int64
}

// Controller manages the allocator's OS memory budget. A nil
// *Controller is valid and enforces nothing.
type Controller struct {
	memSem     *semaphore.Weighted // nil if unlimited
	mapLimiter *rate.Limiter       // nil if unlimited
	mapped     atomic.Int64
}

// NewController creates a controller from cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{}
	if cfg.MappedBytesLimit > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MappedBytesLimit)
	}
	if cfg.MapsPerSec > 0 {
		c.mapLimiter = rate.NewLimiter(rate.Limit(cfg.MapsPerSec), int(cfg.MapsPerSec))
	}
	return c
}

// ReserveMapped reserves bytes against the budget. Non-blocking;
// returns ErrMemoryLimitExceeded if the cap would be exceeded.
func (c *Controller) ReserveMapped(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.mapped.Add(bytes)
	return nil
}

// ReleaseMapped returns bytes to the budget.
func (c *Controller) ReleaseMapped(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.mapped.Add(-bytes)
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
}

// ThrottleMap blocks until a mapping call is permitted under the
// configured rate.
func (c *Controller) ThrottleMap(ctx context.Context) error {
	if c == nil || c.mapLimiter == nil {
		return nil
	}
	return c.mapLimiter.Wait(ctx)
}

// MappedBytes returns the bytes currently reserved.
func (c *Controller) MappedBytes() int64 {
	if c == nil {
		return 0
	}
	return c.mapped.Load()
}
