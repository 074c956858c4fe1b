package blockalloc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"github.com/leslie-fei/blockalloc/gom"
	"github.com/leslie-fei/blockalloc/mmap"
	"github.com/leslie-fei/blockalloc/shm"
)

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// Memory 内存块抽象
type Memory interface {
	// Attach acquire the memory from the OS
	Attach() error
	// Detach give the memory back
	Detach() error
	// Ptr first ptr
	Ptr() unsafe.Pointer
	// Size memory total size
	Size() uint64
	// PtrOffset offset Get ptr
	PtrOffset(offset uint64) unsafe.Pointer
	// Travel memory
	Travel(skipOffset uint64, fn func(ptr unsafe.Pointer, size uint64) uint64)
}

// Source hands out the raw regions block chains are carved from.
type Source interface {
	// NewMemory returns an unattached region of bytes size.
	NewMemory(bytes uint64) Memory
	// Alignment is the alignment every attached region starts at.
	Alignment() uint64
}

func newSource(c *Config) (Source, error) {
	if c.Source != nil {
		return c.Source, nil
	}
	switch c.MemoryType {
	case GO:
		return goSource{}, nil
	case SHM:
		if !shm.Supported {
			return nil, fmt.Errorf("%w: shm", ErrUnsupportedMemory)
		}
		return shmSource{}, nil
	case MMAP:
		if c.MemoryKey != "" {
			if fi, err := os.Stat(c.MemoryKey); err != nil {
				return nil, err
			} else if !fi.IsDir() {
				return nil, fmt.Errorf("mmap MemoryKey %q is not a directory", c.MemoryKey)
			}
		}
		return &mmapSource{dir: c.MemoryKey}, nil
	default:
		return nil, fmt.Errorf("%w: MemoryType %d", ErrUnsupportedMemory, c.MemoryType)
	}
}

type goSource struct{}

func (goSource) NewMemory(bytes uint64) Memory {
	return gom.NewMemory(bytes)
}

// Alignment of a fresh []byte is only guaranteed to be word sized.
func (goSource) Alignment() uint64 {
	return uint64(unsafe.Sizeof(uintptr(0)))
}

type mmapSource struct {
	dir string
	seq atomic.Uint64
}

func (s *mmapSource) NewMemory(bytes uint64) Memory {
	if s.dir == "" {
		return mmap.NewMemory("", bytes)
	}
	name := fmt.Sprintf("blockalloc-%d-%d.mem", os.Getpid(), s.seq.Add(1))
	return mmap.NewMemory(filepath.Join(s.dir, name), bytes)
}

func (s *mmapSource) Alignment() uint64 {
	return uint64(os.Getpagesize())
}

type shmSource struct{}

func (shmSource) NewMemory(bytes uint64) Memory {
	return shm.NewMemory("", bytes)
}

func (shmSource) Alignment() uint64 {
	return uint64(os.Getpagesize())
}
