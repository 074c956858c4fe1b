package blockalloc

import (
	"golang.org/x/sys/cpu"

	"github.com/leslie-fei/blockalloc/lfstack"
)

// localPool caches free blocks for one worker slot. Only the worker holding
// the slot touches it, there is no lock.
type localPool struct {
	count uint64
	head  *block
	// mid has exactly listLength blocks below it once count passed
	// listLength+1, the tail after it moves to the global pool in one step.
	mid *block
	_   cpu.CacheLinePad
}

// push caches b and hands listLength blocks to global when the cache is
// full.
//
//go:norace
func (l *localPool) push(b *block, listLength uint64, global *lfstack.Stack[*block]) {
	if l.count == listLength+1 {
		l.mid = l.head
	} else if l.count == 2*listLength {
		global.Push(l.mid.next)
		l.mid.next = nil
		l.count = listLength
	}

	b.next = l.head
	l.head = b
	l.count++
}

//go:norace
func (l *localPool) pop() *block {
	b := l.head
	if debugChecks {
		assertf(b != nil && l.count > 0, "pop from empty local pool, count %d", l.count)
	}
	l.head = b.next
	l.count--
	return b
}

//go:norace
func (l *localPool) install(chain *block, listLength uint64) {
	l.head = chain
	l.mid = nil
	l.count = listLength
}

//go:norace
func (l *localPool) size() uint64 {
	return l.count
}

//go:norace
func (l *localPool) reset() {
	*l = localPool{}
}
