package blockalloc

import (
	"runtime"
	"sync/atomic"
)

// spinLocker guards short, rarely contended sections.
type spinLocker struct {
	state atomic.Int32
}

func (l *spinLocker) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *spinLocker) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("unlock an unlocked-lock")
	}
}
