package blockalloc

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Destroyer is implemented by types that need cleanup before Delete frees
// their storage.
type Destroyer interface {
	Destroy()
}

// TypeAllocator allocates storage for single values of T from the registry
// allocator matching T's size and alignment.
//
// T must not contain pointers: blocks live outside the memory the garbage
// collector scans.
type TypeAllocator[T any] struct {
	allocator *Allocator
	align     uintptr
}

// For returns the typed allocator of T in r. It fails with ErrPointerType
// when T holds pointers, strings, slices, maps, channels, funcs or
// interfaces.
func For[T any](r *Registry) (*TypeAllocator[T], error) {
	var zero T
	typ := reflect.TypeOf(&zero).Elem()
	if hasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerType, typ)
	}
	a, err := r.Get(uint64(unsafe.Sizeof(zero)), uint64(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return &TypeAllocator[T]{allocator: a, align: unsafe.Alignof(zero)}, nil
}

// MustFor is For that panics on error.
func MustFor[T any](r *Registry) *TypeAllocator[T] {
	t, err := For[T](r)
	if err != nil {
		panic(err)
	}
	return t
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// Allocator is the shared allocator behind T.
func (t *TypeAllocator[T]) Allocator() *Allocator {
	return t.allocator
}

// Alloc returns uninitialized storage for a T.
func (t *TypeAllocator[T]) Alloc() *T {
	ptr := t.allocator.Alloc()
	if debugChecks {
		assertf(uintptr(ptr)%t.align == 0, "%p not aligned to %d", ptr, t.align)
	}
	return (*T)(ptr)
}

// Free gives storage obtained from Alloc back without destroying it.
func (t *TypeAllocator[T]) Free(p *T) {
	if debugChecks {
		assertf(p != nil, "free of nil pointer")
		assertf(uintptr(unsafe.Pointer(p))%t.align == 0, "%p not aligned to %d", p, t.align)
	}
	t.allocator.Free(unsafe.Pointer(p))
}

// New allocates a T holding v.
func (t *TypeAllocator[T]) New(v T) *T {
	p := t.Alloc()
	*p = v
	return p
}

// NewWith allocates a zeroed T and hands it to init.
func (t *TypeAllocator[T]) NewWith(init func(*T)) *T {
	p := t.Alloc()
	var zero T
	*p = zero
	if init != nil {
		init(p)
	}
	return p
}

// Delete destroys a T obtained from New or NewWith and frees it.
func (t *TypeAllocator[T]) Delete(p *T) {
	if debugChecks {
		assertf(p != nil, "delete of nil pointer")
	}
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
	t.Free(p)
}

func (t *TypeAllocator[T]) Reserve(n uint64) {
	t.allocator.Reserve(n)
}

// Finish clears the shared allocator, which serves every type of the same
// size and alignment.
func (t *TypeAllocator[T]) Finish() error {
	return t.allocator.Clear()
}

func (t *TypeAllocator[T]) BlockSize() uint64 {
	return t.allocator.BlockSize()
}

func (t *TypeAllocator[T]) NumAllocatedBlocks() uint64 {
	return t.allocator.NumAllocatedBlocks()
}

func (t *TypeAllocator[T]) NumUsedBlocks() uint64 {
	return t.allocator.NumUsedBlocks()
}

func (t *TypeAllocator[T]) NumUsedBytes() uint64 {
	return t.allocator.NumUsedBytes()
}

func (t *TypeAllocator[T]) PrintStats() {
	t.allocator.PrintStats()
}
