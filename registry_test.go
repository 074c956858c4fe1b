package blockalloc

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Get(t *testing.T) {
	r := newTestRegistry(t)

	a, err := r.Get(24, 8)
	require.NoError(t, err)
	b, err := r.Get(24, 8)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, uint64(24), a.BlockSize())
	assert.Equal(t, uint64(4), a.ListLength())

	c, err := r.Get(24, 4)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	d, err := r.Get(24, 256)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), d.BlockAlign())
	assert.Equal(t, uint64(256), d.BlockSize())

	_, err = r.Get(24, 3)
	assert.ErrorIs(t, err, ErrInvalidAlign)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_GetAlignsEveryBlock(t *testing.T) {
	r := NewRegistry(&Config{MemoryType: GO, ListLength: 4})
	defer r.Close()

	for _, align := range []uint64{16, 32, 256} {
		a, err := r.Get(24, align)
		require.NoError(t, err)
		assert.Zero(t, a.BlockSize()%align)
		assert.GreaterOrEqual(t, a.BlockSize(), uint64(24))

		// two whole chains, the second from a fresh region
		ptrs := make([]unsafe.Pointer, 2*a.ListLength())
		for i := range ptrs {
			ptrs[i] = a.Alloc()
			assert.Zero(t, uintptr(ptrs[i])%uintptr(align), "block %d align %d", i, align)
		}
		for _, p := range ptrs {
			a.Free(p)
		}
	}

	small, err := r.Get(1, 0)
	require.NoError(t, err)
	assert.Equal(t, sizeOfBlock, small.BlockSize())
}

func TestRegistry_GetConcurrent(t *testing.T) {
	r := newTestRegistry(t)
	const workers = 32
	got := make([]*Allocator, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			a, err := r.Get(uint64(8*(i%4+1)), 8)
			assert.NoError(t, err)
			got[i] = a
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, r.Len())
	for i := 4; i < workers; i++ {
		assert.Same(t, got[i%4], got[i])
	}
}

func TestRegistry_Range(t *testing.T) {
	r := newTestRegistry(t)
	for size := uint64(8); size <= 64; size += 8 {
		_, err := r.Get(size, 8)
		require.NoError(t, err)
	}

	sizes := map[uint64]bool{}
	r.Range(func(size, align uint64, a *Allocator) bool {
		assert.Equal(t, uint64(8), align)
		sizes[size] = true
		return true
	})
	assert.Len(t, sizes, 8)

	visited := 0
	r.Range(func(uint64, uint64, *Allocator) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(&Config{ListLength: 4})
	a, err := r.Get(16, 8)
	require.NoError(t, err)
	b, err := r.Get(32, 8)
	require.NoError(t, err)

	pa := a.Alloc()
	b.Free(b.Alloc())

	err = r.Close()
	assert.ErrorIs(t, err, ErrBlocksInUse)
	assert.Equal(t, 1, r.Len(), "allocator with live blocks is kept")
	assert.Equal(t, uint64(0), b.NumAllocatedBlocks())

	a.Free(pa)
	assert.NoError(t, r.Close())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, uint64(0), a.NumAllocatedBlocks())
}

func TestRegistry_ShardHash(t *testing.T) {
	k := blockKey{size: 16, align: 8}
	assert.Equal(t, k.hash(), blockKey{size: 16, align: 8}.hash())
	assert.NotEqual(t, k.hash(), blockKey{size: 8, align: 16}.hash())

	r := NewRegistry(nil)
	assert.Same(t, r.shard(k), r.shard(blockKey{size: 16, align: 8}))
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
	assert.Equal(t, MMAP, DefaultRegistry().config.MemoryType)
}
