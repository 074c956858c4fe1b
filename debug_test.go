//go:build debug

package blockalloc

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFree_DebugRejectsUnalignedPointer(t *testing.T) {
	a, _ := newTestAllocator(t, 32, 4, &Config{MemoryType: GO})
	p := a.Alloc()
	defer a.Free(p)

	bad := unsafe.Add(p, 4)
	assert.PanicsWithError(t,
		fmt.Sprintf("blockalloc: assertion failed: free of pointer %p not aligned to %d bytes", bad, sizeOfBlock),
		func() { a.Free(bad) })
	require.Equal(t, uint64(1), a.NumUsedBlocks())
}

func TestFree_DebugPoisonsBlock(t *testing.T) {
	a, _ := newTestAllocator(t, 32, 4, &Config{MemoryType: GO})
	p := a.Alloc()
	b := unsafe.Slice((*byte)(p), a.BlockSize())
	for i := range b {
		b[i] = 1
	}
	a.Free(p)
	// the first word holds the free list link
	for _, c := range b[sizeOfBlock:] {
		require.Equal(t, byte(0xa5), c)
	}
}
