package workerid

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcIdentity(t *testing.T) {
	id := NewProcIdentity()
	assert.GreaterOrEqual(t, id.Max(), runtime.GOMAXPROCS(0))

	p := id.Acquire()
	assert.GreaterOrEqual(t, p, 0)
	assert.Less(t, p, id.Max())
	id.Release(p)

	assert.Equal(t, 3, NewProcIdentitySize(3).Max())
}

func TestProcIdentity_OutOfRange(t *testing.T) {
	prev := runtime.GOMAXPROCS(2)
	defer runtime.GOMAXPROCS(prev)

	id := NewProcIdentitySize(1)
	var wg sync.WaitGroup
	panics := make(chan interface{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics <- r
				}
			}()
			p := id.Acquire()
			id.Release(p)
		}()
	}
	wg.Wait()
	close(panics)
	for r := range panics {
		assert.Contains(t, r.(error).Error(), "out of range")
	}
}

func TestTokenIdentity(t *testing.T) {
	id := NewTokenIdentity(2)
	assert.Equal(t, 2, id.Max())

	a := id.Acquire()
	b := id.Acquire()
	assert.NotEqual(t, a, b)

	acquired := make(chan int)
	go func() { acquired <- id.Acquire() }()

	select {
	case <-acquired:
		t.Fatal("acquired a third token out of two")
	case <-time.After(20 * time.Millisecond):
	}

	id.Release(a)
	assert.Equal(t, a, <-acquired)
	id.Release(a)
	id.Release(b)
}

func TestTokenIdentity_Exclusive(t *testing.T) {
	const workers = 8
	id := NewTokenIdentity(3)
	var holders [3]int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				slot := id.Acquire()
				mu.Lock()
				holders[slot]++
				assert.Equal(t, int32(1), holders[slot])
				mu.Unlock()

				mu.Lock()
				holders[slot]--
				mu.Unlock()
				id.Release(slot)
			}
		}()
	}
	wg.Wait()
}
