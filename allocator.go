package slabgo

import "unsafe"

// TypedAllocator is a value-type allocator handle, shaped for container
// use. Its only state is the Allocator it is bound to. Handles of any
// element type bound to the same Allocator are interchangeable: any of
// them may free what another allocated. The zero value is ready to use
// and draws from Default().
type TypedAllocator[T any] struct {
	al *Allocator
}

// NewTypedAllocator binds a handle to al. Passing nil binds to
// Default().
func NewTypedAllocator[T any](al *Allocator) TypedAllocator[T] {
	return TypedAllocator[T]{al: al}
}

// AllocateN allocates storage for n values of T. n == 0 returns nil
// with no error. Returns ErrOutOfMemory when storage cannot be
// obtained.
func (t TypedAllocator[T]) AllocateN(n int) (*T, error) {
	if n <= 0 {
		return nil, nil
	}
	size := n * int(unsafe.Sizeof(*new(T)))
	p := t.allocator().Allocate(size)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return (*T)(p), nil
}

// DeallocateN releases storage for n values of T previously returned
// by AllocateN with the same n. A nil pointer is a no-op.
func (t TypedAllocator[T]) DeallocateN(ptr *T, n int) {
	if ptr == nil || n <= 0 {
		return
	}
	size := n * int(unsafe.Sizeof(*new(T)))
	t.allocator().Deallocate(unsafe.Pointer(ptr), size)
}

func (t TypedAllocator[T]) allocator() *Allocator {
	if t.al != nil {
		return t.al
	}
	return Default()
}
