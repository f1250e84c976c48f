//go:build unix

package chunk

import "golang.org/x/sys/unix"

// LockMemory pins the process's current and future pages in RAM,
// suppressing major faults on the hot path. Idempotent; the first
// success is recorded process-wide.
func (p *Provider) LockMemory() error {
	if p.locked.Load() {
		return nil
	}
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return err
	}
	p.locked.Store(true)
	return nil
}
