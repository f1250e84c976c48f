//go:build windows

package chunk

import "errors"

// ErrUnsupported is returned for operations the platform cannot provide.
var ErrUnsupported = errors.New("chunk: not supported on this platform")

// LockMemory is unsupported on Windows; there is no process-wide
// equivalent of mlockall.
func (p *Provider) LockMemory() error {
	return ErrUnsupported
}
