package main

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/leslie-fei/blockalloc"
)

type result struct {
	ops        int64
	mismatches int64
}

// run starts workers that allocate blocks, stamp them, and free them in
// random bursts, half of them through a shared channel so blocks are also
// freed by goroutines that did not allocate them.
func run(alloc *blockalloc.Allocator, workers, rounds, burst int) result {
	var (
		wg  sync.WaitGroup
		res result
	)
	burst = max(burst, 1)
	handoff := make(chan unsafe.Pointer, workers*burst)

	worker := func(id int) {
		defer wg.Done()
		rnd := rand.New(rand.NewSource(int64(id)))
		held := make([]unsafe.Pointer, 0, burst)
		stamp := byte(id)

		release := func() {
			for _, p := range held {
				if !verify(p, alloc.BlockSize(), stamp) {
					atomic.AddInt64(&res.mismatches, 1)
				}
				if rnd.Intn(2) == 0 {
					select {
					case handoff <- p:
						continue
					default:
					}
				}
				alloc.Free(p)
			}
			atomic.AddInt64(&res.ops, int64(len(held)))
			held = held[:0]
		}

		for i := 0; i < rounds; i++ {
			p := alloc.Alloc()
			fill(p, alloc.BlockSize(), stamp)
			held = append(held, p)
			atomic.AddInt64(&res.ops, 1)

			if len(held) == cap(held) || rnd.Intn(burst) == 0 {
				release()
			}

			select {
			case q := <-handoff:
				alloc.Free(q)
				atomic.AddInt64(&res.ops, 1)
			default:
			}
		}
		release()
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker(i)
	}
	wg.Wait()

	close(handoff)
	for q := range handoff {
		alloc.Free(q)
		res.ops++
	}
	return res
}

func fill(p unsafe.Pointer, size uint64, stamp byte) {
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		b[i] = stamp
	}
}

func verify(p unsafe.Pointer, size uint64, stamp byte) bool {
	for _, c := range unsafe.Slice((*byte)(p), size) {
		if c != stamp {
			return false
		}
	}
	return true
}
