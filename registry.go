package blockalloc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const registryShards = 16

type blockKey struct {
	size  uint64
	align uint64
}

func (k blockKey) hash() uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], k.size)
	binary.LittleEndian.PutUint64(b[8:], k.align)
	return xxhash.Sum64(b[:])
}

type registryShard struct {
	locker     spinLocker
	allocators map[blockKey]*Allocator
}

// Registry owns one Allocator per (size, alignment) pair. Types of equal
// size and alignment share an allocator.
type Registry struct {
	config *Config
	shards [registryShards]registryShard
}

// NewRegistry creates an empty registry; every allocator it creates is
// built from c.
func NewRegistry(c *Config) *Registry {
	r := &Registry{config: mergeConfig(c)}
	for i := range r.shards {
		r.shards[i].allocators = make(map[blockKey]*Allocator)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(nil)
})

// DefaultRegistry is a process wide registry created on first use.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

func (r *Registry) shard(k blockKey) *registryShard {
	return &r.shards[k.hash()%registryShards]
}

// Get returns the allocator for blocks of at least size bytes aligned to
// align, creating it on first use. The block size is rounded up to a
// multiple of align.
func (r *Registry) Get(size, align uint64) (*Allocator, error) {
	if align != 0 && bits.OnesCount64(align) != 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlign, align)
	}
	k := blockKey{size: size, align: align}
	s := r.shard(k)
	s.locker.Lock()
	defer s.locker.Unlock()
	if a, ok := s.allocators[k]; ok {
		return a, nil
	}

	config := *r.config
	config.BlockAlign = max(align, config.BlockAlign)
	// blocks follow each other without gaps, a size that is a multiple of
	// align keeps every one of them aligned
	a, err := NewAllocator(alignUp(max(size, sizeOfBlock), max(align, sizeOfBlock)), &config)
	if err != nil {
		return nil, fmt.Errorf("allocator for size %d align %d: %w", size, align, err)
	}
	s.allocators[k] = a
	return a, nil
}

// Len is the number of allocators created so far.
func (r *Registry) Len() (n int) {
	for i := range r.shards {
		s := &r.shards[i]
		s.locker.Lock()
		n += len(s.allocators)
		s.locker.Unlock()
	}
	return
}

// Range calls fn for every allocator until fn returns false.
func (r *Registry) Range(fn func(size, align uint64, a *Allocator) bool) {
	for i := range r.shards {
		s := &r.shards[i]
		s.locker.Lock()
		for k, a := range s.allocators {
			if !fn(k.size, k.align, a) {
				s.locker.Unlock()
				return
			}
		}
		s.locker.Unlock()
	}
}

// Close clears every allocator and forgets the ones that cleared. Like
// Allocator.Clear it must not run concurrently with allocations.
func (r *Registry) Close() error {
	var errs []error
	for i := range r.shards {
		s := &r.shards[i]
		s.locker.Lock()
		for k, a := range s.allocators {
			if err := a.Clear(); err != nil {
				errs = append(errs, fmt.Errorf("size %d align %d: %w", k.size, k.align, err))
				if errors.Is(err, ErrBlocksInUse) {
					continue
				}
			}
			delete(s.allocators, k)
		}
		s.locker.Unlock()
	}
	return errors.Join(errs...)
}
