//go:build unix && !linux

package chunk

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Non-Linux unix lacks MAP_HUGETLB; every chunk uses ordinary pages.
func (p *Provider) mapChunk() (uintptr, error) {
	const total = uintptr(2 * Size)

	ptr, err := unix.MmapPtr(-1, 0, nil, total,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}

	addr := uintptr(ptr)
	base := (addr + Mask) &^ uintptr(Mask)
	if head := base - addr; head != 0 {
		_ = unix.MunmapPtr(ptr, head)
	}
	if tail := addr + total - (base + Size); tail != 0 {
		_ = unix.MunmapPtr(unsafe.Pointer(base+Size), tail)
	}
	return base, nil
}

func (p *Provider) unmapChunk(base uintptr) {
	_ = unix.MunmapPtr(unsafe.Pointer(base), Size)
}

func (p *Provider) mapLarge(rounded int) (uintptr, error) {
	ptr, err := unix.MmapPtr(-1, 0, nil, uintptr(rounded),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return uintptr(ptr), nil
}

func (p *Provider) unmapLarge(base uintptr, rounded int) {
	_ = unix.MunmapPtr(unsafe.Pointer(base), uintptr(rounded))
}
