package blockalloc

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/leslie-fei/blockalloc/lfstack"
	"github.com/leslie-fei/blockalloc/log"
	"github.com/leslie-fei/blockalloc/workerid"
)

// Allocator hands out blocks of one fixed size to any number of concurrent
// workers.
//
// Every worker slot caches free blocks in its own local pool. An empty local
// pool takes a chain of ListLength blocks from the global pool, or carves a
// fresh chain out of a new region when the global pool is empty. A local
// pool holding 2*ListLength blocks gives ListLength of them back.
//
// Memory goes back to the OS only through Clear.
type Allocator struct {
	blockSize  uint64
	blockAlign uint64
	listLength uint64
	maxBlocks  uint64
	reserve    ReservePolicy

	identity workerid.Identity
	source   Source
	locals   []localPool
	// global holds chains of exactly listLength blocks
	global *lfstack.Stack[*block]
	// buffers holds every region carved so far
	buffers *lfstack.Stack[Memory]

	blocksAllocated atomic.Uint64
}

// NewAllocator builds an allocator for blocks of blockSize bytes. A nil
// config uses DefaultConfig.
func NewAllocator(blockSize uint64, c *Config) (*Allocator, error) {
	config := mergeConfig(c)
	if bits.OnesCount64(config.BlockAlign) != 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlign, config.BlockAlign)
	}

	source, err := newSource(config)
	if err != nil {
		return nil, err
	}

	identity := config.Identity
	if identity == nil {
		identity = workerid.NewProcIdentitySize(config.MaxWorkers)
	}

	// 每个block至少能放下一个空闲链表节点
	blockSize = alignUp(max(blockSize, sizeOfBlock), sizeOfBlock)
	listLength := config.ListLength
	if listLength == 0 {
		listLength = (defaultListBytes + blockSize + 1) / blockSize
	}
	maxBlocks := config.MaxBlocks
	if maxBlocks == 0 {
		maxBlocks = maxBlocksBytes / blockSize
	}

	a := &Allocator{
		blockSize:  blockSize,
		blockAlign: max(config.BlockAlign, minBlockAlign),
		listLength: max(listLength, minListLength),
		maxBlocks:  maxBlocks,
		reserve:    config.Reserve,
		identity:   identity,
		source:     source,
		locals:     make([]localPool, identity.Max()),
		global:     lfstack.New[*block](),
		buffers:    lfstack.New[Memory](),
	}
	a.Reserve(config.ReservedBlocks)
	return a, nil
}

func (a *Allocator) BlockSize() uint64 {
	return a.blockSize
}

func (a *Allocator) BlockAlign() uint64 {
	return a.blockAlign
}

func (a *Allocator) ListLength() uint64 {
	return a.listLength
}

func (a *Allocator) MaxBlocks() uint64 {
	return a.maxBlocks
}

func (a *Allocator) MaxWorkers() int {
	return len(a.locals)
}

// Alloc returns uninitialized storage of BlockSize bytes. Regions start at
// BlockAlign, so a block is aligned to the largest power of two dividing
// both BlockAlign and BlockSize. It panics when the OS cannot supply memory.
//
//go:norace
func (a *Allocator) Alloc() unsafe.Pointer {
	id := a.identity.Acquire()
	l := &a.locals[id]
	if l.size() == 0 {
		// getList may block, give the slot up while it runs
		a.identity.Release(id)
		id, l = a.installList(a.getList())
	}
	b := l.pop()
	a.identity.Release(id)
	return b.storage()
}

// installList re-resolves the worker slot after a chain was fetched. The
// caller may now run on another slot, and that slot may have been refilled
// in the meantime; the chain then goes back to the global pool instead of
// overwriting cached blocks. The returned slot is held and non-empty.
//
//go:norace
func (a *Allocator) installList(chain *block) (int, *localPool) {
	id := a.identity.Acquire()
	l := &a.locals[id]
	if l.size() == 0 {
		l.install(chain, a.listLength)
	} else {
		a.global.Push(chain)
	}
	return id, l
}

// Free returns storage obtained from Alloc on this allocator. Freeing
// foreign or already freed storage is not detected.
//
//go:norace
func (a *Allocator) Free(ptr unsafe.Pointer) {
	if debugChecks {
		assertf(ptr != nil, "free of nil pointer")
		assertf(uint64(uintptr(ptr))%sizeOfBlock == 0, "free of pointer %p not aligned to %d bytes", ptr, sizeOfBlock)
		poisonblock(ptr, a.blockSize)
	}
	id := a.identity.Acquire()
	a.locals[id].push(toBlock(ptr), a.listLength, a.global)
	a.identity.Release(id)
}

// getList pops a chain from the global pool, or carves a new one.
func (a *Allocator) getList() *block {
	if chain, ok := a.global.Pop(); ok {
		return chain
	}
	mem, offset := a.allocateBlocks(a.listLength)
	return initializeList(mem, offset, a.blockSize, a.listLength)
}

// allocateBlocks attaches a region for n blocks and records it. It returns
// the region and the offset of the first aligned block.
func (a *Allocator) allocateBlocks(n uint64) (Memory, uint64) {
	if total := a.blocksAllocated.Add(n); total > a.maxBlocks {
		a.blocksAllocated.Add(^(n - 1))
		panic(fmt.Errorf("%w: %d > %d blocks of %d bytes", ErrMaxBlocks, total, a.maxBlocks, a.blockSize))
	}

	bytes := n * a.blockSize
	if a.source.Alignment() < a.blockAlign {
		bytes += a.blockAlign
	}
	mem := a.source.NewMemory(bytes)
	if err := mem.Attach(); err != nil {
		a.blocksAllocated.Add(^(n - 1))
		log.Get().WithError(err).WithFields(logrus.Fields{
			"bytes":      bytes,
			"block_size": a.blockSize,
		}).Error("blockalloc: attach memory failed")
		panic(fmt.Errorf("%w: %v", ErrNoMemory, err))
	}
	a.buffers.Push(mem)

	base := uint64(uintptr(mem.Ptr()))
	offset := alignUp(base, a.blockAlign) - base
	if log.Get().IsLevelEnabled(logrus.DebugLevel) {
		log.Get().WithFields(logrus.Fields{
			"blocks":     n,
			"block_size": a.blockSize,
			"bytes":      bytes,
			"allocated":  a.blocksAllocated.Load(),
		}).Debug("blockalloc: carved region")
	}
	return mem, offset
}

// Reserve prepares about n blocks ahead of time according to the reserve
// policy. With ReserveNone it does nothing.
func (a *Allocator) Reserve(n uint64) {
	if n == 0 || a.reserve != ReserveEager {
		return
	}
	lists := (n + a.listLength - 1) / a.listLength
	for i := uint64(0); i < lists; i++ {
		mem, offset := a.allocateBlocks(a.listLength)
		a.global.Push(initializeList(mem, offset, a.blockSize, a.listLength))
	}
}

// NumAllocatedBlocks is the number of blocks carved from the OS since the
// last Clear.
func (a *Allocator) NumAllocatedBlocks() uint64 {
	return a.blocksAllocated.Load()
}

// NumUsedBlocks is the number of blocks held by callers. The counters it
// sums change independently, so under concurrent use the result is only an
// estimate. It is exact while nothing allocates or frees.
//
//go:norace
func (a *Allocator) NumUsedBlocks() uint64 {
	free := uint64(a.global.Size()) * a.listLength
	for i := range a.locals {
		free += a.locals[i].size()
	}
	allocated := a.blocksAllocated.Load()
	if free >= allocated {
		return 0
	}
	return allocated - free
}

func (a *Allocator) NumUsedBytes() uint64 {
	return a.NumUsedBlocks() * a.blockSize
}

// Clear gives all memory back to the OS. It must not run concurrently with
// any other method. It fails with ErrBlocksInUse and changes nothing when
// blocks are still held by callers. Detach errors are returned after every
// region was visited.
//
//go:norace
func (a *Allocator) Clear() error {
	if used := a.NumUsedBlocks(); used > 0 {
		return fmt.Errorf("%w: %d blocks", ErrBlocksInUse, used)
	}

	for i := range a.locals {
		a.locals[i].reset()
	}
	lists := a.global.Clear()

	var errs []error
	regions := a.buffers.Drain(func(mem Memory) {
		if err := mem.Detach(); err != nil {
			errs = append(errs, err)
		}
	})
	a.blocksAllocated.Store(0)

	err := errors.Join(errs...)
	entry := log.Get().WithFields(logrus.Fields{
		"regions":    regions,
		"lists":      lists,
		"block_size": a.blockSize,
	})
	if err != nil {
		entry.WithError(err).Error("blockalloc: detach memory failed")
	} else {
		entry.Debug("blockalloc: cleared")
	}
	return err
}

// Close releases the allocator, see Clear.
func (a *Allocator) Close() error {
	return a.Clear()
}
