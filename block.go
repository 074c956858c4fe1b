package blockalloc

import (
	"unsafe"
)

var sizeOfBlock = uint64(unsafe.Sizeof(block{}))

// block is the free list node laid over the storage of an unused block.
// It is only valid while the block is free; once handed out the storage
// belongs to the caller and the allocator does not touch it.
type block struct {
	next *block
}

// toBlock turns caller storage back into a free list node.
func toBlock(ptr unsafe.Pointer) *block {
	return (*block)(ptr)
}

// storage turns a free list node into caller storage.
func (b *block) storage() unsafe.Pointer {
	return unsafe.Pointer(b)
}

// initializeList links n blocks of size bytes laid out in mem from offset
// on, each pointing at the next higher address. It returns the lowest one.
func initializeList(mem Memory, offset, size, n uint64) *block {
	var head, tail *block
	var linked uint64
	mem.Travel(offset, func(ptr unsafe.Pointer, remain uint64) uint64 {
		if remain < size {
			return 0
		}
		b := toBlock(ptr)
		b.next = nil
		if tail == nil {
			head = b
		} else {
			tail.next = b
		}
		tail = b
		if linked++; linked == n {
			return 0
		}
		return size
	})
	assertf(linked == n, "linked %d blocks, want %d", linked, n)
	return head
}

// chainLength walks a chain, for tests and debug checks only.
func chainLength(b *block) (n uint64) {
	for ; b != nil; b = b.next {
		n++
	}
	return
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
