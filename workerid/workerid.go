// Package workerid hands out dense worker slot ids.
//
// An id is only meaningful between Acquire and Release. Code that releases
// its id (to block, to call into something that may reschedule it) must
// acquire again afterwards and must not assume it got the same id back.
package workerid

import (
	"fmt"
	"runtime"
	_ "unsafe"
)

// Identity resolves the slot of the calling worker.
type Identity interface {
	// Acquire returns an id in [0, Max()) that no other running worker
	// holds until Release is called with it.
	Acquire() int
	// Release gives up the id returned by the matching Acquire.
	Release(id int)
	// Max is the fixed upper bound of ids.
	Max() int
}

//go:linkname runtime_procPin runtime.procPin
func runtime_procPin() int

//go:linkname runtime_procUnpin runtime.procUnpin
func runtime_procUnpin()

// ProcIdentity uses the id of the current P. While the id is held the
// goroutine cannot be preempted or moved, so at most one goroutine works on
// a slot at a time.
type ProcIdentity struct {
	max int
}

// NewProcIdentity bounds ids by the larger of GOMAXPROCS and NumCPU.
func NewProcIdentity() *ProcIdentity {
	return NewProcIdentitySize(0)
}

// NewProcIdentitySize uses n as the bound when it is positive. GOMAXPROCS
// must not be raised beyond it while the identity is in use.
func NewProcIdentitySize(n int) *ProcIdentity {
	if n <= 0 {
		n = max(runtime.GOMAXPROCS(0), runtime.NumCPU())
	}
	return &ProcIdentity{max: n}
}

func (p *ProcIdentity) Acquire() int {
	id := runtime_procPin()
	if id >= p.max {
		runtime_procUnpin()
		panic(fmt.Errorf("workerid: P %d out of range, GOMAXPROCS raised above %d", id, p.max))
	}
	return id
}

func (p *ProcIdentity) Release(int) {
	runtime_procUnpin()
}

func (p *ProcIdentity) Max() int {
	return p.max
}

// TokenIdentity is a fixed set of slot tokens. Acquire blocks while every
// token is taken.
type TokenIdentity struct {
	tokens chan int
}

func NewTokenIdentity(n int) *TokenIdentity {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	tokens := make(chan int, n)
	for i := 0; i < n; i++ {
		tokens <- i
	}
	return &TokenIdentity{tokens: tokens}
}

func (t *TokenIdentity) Acquire() int {
	return <-t.tokens
}

func (t *TokenIdentity) Release(id int) {
	t.tokens <- id
}

func (t *TokenIdentity) Max() int {
	return cap(t.tokens)
}
