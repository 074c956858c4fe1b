package mmap

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Anonymous(t *testing.T) {
	size := uint64(64 * 1024)
	mem := NewMemory("", size)
	require.NoError(t, mem.Attach())

	// page aligned
	assert.Zero(t, uintptr(mem.Ptr())%uintptr(os.Getpagesize()))

	p1 := (*uint64)(mem.PtrOffset(4096))
	*p1 = 42
	assert.Equal(t, uint64(42), *(*uint64)(unsafe.Add(mem.Ptr(), 4096)))

	steps := 0
	mem.Travel(size-64, func(ptr unsafe.Pointer, remain uint64) uint64 {
		steps++
		return 32
	})
	assert.Equal(t, 2, steps)

	assert.Equal(t, size, mem.Size())
	assert.Panics(t, func() {
		_ = mem.PtrOffset(size)
	})

	require.NoError(t, mem.Detach())
	assert.Nil(t, mem.Ptr())
	assert.NoError(t, mem.Detach())
}

func TestMemory_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.mem")
	size := uint64(8192)
	mem := NewMemory(path, size)
	require.NoError(t, mem.Attach())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(size), fi.Size())

	*(*uint32)(mem.Ptr()) = 7
	assert.Equal(t, uint32(7), *(*uint32)(mem.PtrOffset(0)))

	require.NoError(t, mem.Detach())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMemory_ZeroSize(t *testing.T) {
	assert.Error(t, NewMemory("", 0).Attach())
}
