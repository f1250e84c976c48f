// Package sizeclass maps allocation sizes onto the segregated size
// classes served by the slab path.
//
// Small classes advance in 16-byte steps from 16 to 256 bytes; medium
// classes are powers of two from 512 bytes to 64 KiB. Anything above
// 64 KiB bypasses the slabs entirely and is mapped directly from the OS.
package sizeclass

import "math/bits"

const (
	// NumSmallClasses covers 16, 32, 48, ..., 256.
	NumSmallClasses = 16
	// NumLargeClasses covers 512, 1024, ..., 65536.
	NumLargeClasses = 8
	// NumClasses is the total number of slab size classes.
	NumClasses = NumSmallClasses + NumLargeClasses

	// MinBlockSize is the smallest block handed out. It doubles as the
	// minimum alignment and leaves room for the embedded free-list link.
	MinBlockSize = 16
	// MaxSmallSize is the largest size served by the 16-byte-step classes.
	MaxSmallSize = 256
	// MaxSlabSize is the largest size served by any slab class.
	MaxSlabSize = 65536
)

var sizes = func() [NumClasses]int {
	var s [NumClasses]int
	for i := 0; i < NumSmallClasses; i++ {
		s[i] = (i + 1) * MinBlockSize
	}
	power := 2 * MaxSmallSize
	for i := 0; i < NumLargeClasses; i++ {
		s[NumSmallClasses+i] = power
		power *= 2
	}
	return s
}()

// Index returns the size class for the given allocation size. Size 0
// maps to class 0. For sizes above MaxSlabSize it returns NumClasses;
// callers are expected to test IsLarge first.
func Index(size int) int {
	if size == 0 {
		return 0
	}
	if size < MinBlockSize {
		size = MinBlockSize
	}
	if size <= MaxSmallSize {
		// Round up to the next 16-byte step.
		return (size+MinBlockSize-1)/MinBlockSize - 1
	}
	if size <= MaxSlabSize {
		// Next power of two >= size; 512 is class 16.
		return NumSmallClasses + bits.Len(uint(size-1)) - 9
	}
	return NumClasses
}

// BlockSize returns the block size of a class, or 0 for an out-of-range
// class id.
func BlockSize(class int) int {
	if class < 0 || class >= NumClasses {
		return 0
	}
	return sizes[class]
}

// IsLarge reports whether size must bypass the slab path.
func IsLarge(size int) bool {
	return size > MaxSlabSize
}

// Sizes returns the full size-class table.
func Sizes() [NumClasses]int {
	return sizes
}
