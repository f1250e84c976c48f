//go:build windows

package chunk

import (
	"sync"

	"golang.org/x/sys/windows"
)

// VirtualAlloc only aligns reservations to the 64 KiB granularity, so a
// chunk commits an aligned Size window inside a double-sized
// reservation. The reservation base is remembered for VirtualFree,
// which must be handed the address VirtualAlloc returned.
var chunkReservations sync.Map // aligned base (uintptr) -> reservation base (uintptr)

func (p *Provider) mapChunk() (uintptr, error) {
	reserved, err := windows.VirtualAlloc(0, 2*Size, windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}

	base := (reserved + Mask) &^ uintptr(Mask)
	if _, err := windows.VirtualAlloc(base, Size, windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		_ = windows.VirtualFree(reserved, 0, windows.MEM_RELEASE)
		return 0, err
	}

	chunkReservations.Store(base, reserved)
	return base, nil
}

func (p *Provider) unmapChunk(base uintptr) {
	if reserved, ok := chunkReservations.LoadAndDelete(base); ok {
		_ = windows.VirtualFree(reserved.(uintptr), 0, windows.MEM_RELEASE)
	}
}

func (p *Provider) mapLarge(rounded int) (uintptr, error) {
	base, err := windows.VirtualAlloc(0, uintptr(rounded),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}
	return base, nil
}

func (p *Provider) unmapLarge(base uintptr, _ int) {
	_ = windows.VirtualFree(base, 0, windows.MEM_RELEASE)
}
