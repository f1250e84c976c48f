//go:build linux

package chunk

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapChunk maps one Size-aligned chunk. With the largepages build tag
// the first attempt asks for MAP_HUGETLB backing, which the kernel
// aligns to the huge-page size; on failure it silently falls back to
// ordinary pages.
func (p *Provider) mapChunk() (uintptr, error) {
	if useLargePages {
		ptr, err := unix.MmapPtr(-1, 0, nil, Size,
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB|unix.MAP_POPULATE)
		if err == nil {
			return uintptr(ptr), nil
		}
		p.logger.Debug("huge-page mapping failed, falling back to regular pages", "error", err)
	}
	return p.mapAlignedChunk()
}

// mapAlignedChunk over-maps by one chunk and trims the head and tail so
// the surviving region starts on a Size boundary. Plain mmap only
// guarantees page alignment.
func (p *Provider) mapAlignedChunk() (uintptr, error) {
	const total = uintptr(2 * Size)

	ptr, err := unix.MmapPtr(-1, 0, nil, total,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
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

	// Fault the pages in up front; chunks are reused across their whole
	// lifetime and a cold chunk stalls the first allocations.
	region := unsafe.Slice((*byte)(unsafe.Pointer(base)), Size)
	_ = unix.Madvise(region, unix.MADV_WILLNEED)

	return base, nil
}

func (p *Provider) unmapChunk(base uintptr) {
	_ = unix.MunmapPtr(unsafe.Pointer(base), Size)
}

func (p *Provider) mapLarge(rounded int) (uintptr, error) {
	ptr, err := unix.MmapPtr(-1, 0, nil, uintptr(rounded),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, err
	}
	return uintptr(ptr), nil
}

func (p *Provider) unmapLarge(base uintptr, rounded int) {
	_ = unix.MunmapPtr(unsafe.Pointer(base), uintptr(rounded))
}
