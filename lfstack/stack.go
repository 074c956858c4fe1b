// Package lfstack is a lock-free LIFO stack safe for any number of
// concurrent pushers and poppers.
//
// Every Push allocates a fresh node and a popped node is never reused, it is
// reclaimed by the garbage collector once the last goroutine that loaded it
// lets go. A node that is still referenced can therefore not come back to the
// head, which rules out ABA and use-after-free without hazard slots.
package lfstack

import (
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  *node[T]
}

// Stack is a Treiber stack. The zero value is an empty stack.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]
	// size is raised before a node is published and lowered after it is
	// unlinked, so it never drops below the real length.
	size atomic.Int64
}

func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push v on top of the stack.
func (s *Stack[T]) Push(v T) {
	n := &node[T]{value: v}
	s.size.Add(1)
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// Pop removes the top value, ok is false when the stack is empty.
func (s *Stack[T]) Pop() (v T, ok bool) {
	for {
		old := s.head.Load()
		if old == nil {
			return v, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			s.size.Add(-1)
			return old.value, true
		}
	}
}

// Size is a snapshot of the number of values; pushes in flight may be
// counted before they are visible to Pop.
func (s *Stack[T]) Size() int {
	if n := s.size.Load(); n > 0 {
		return int(n)
	}
	return 0
}

// Empty reports whether the head is nil right now.
func (s *Stack[T]) Empty() bool {
	return s.head.Load() == nil
}

// Clear detaches every value at once and returns how many were dropped.
func (s *Stack[T]) Clear() int {
	n := 0
	for p := s.head.Swap(nil); p != nil; p = p.next {
		n++
	}
	s.size.Add(int64(-n))
	return n
}

// Drain pops until the stack is observed empty, handing each value to fn.
func (s *Stack[T]) Drain(fn func(v T)) int {
	n := 0
	for {
		v, ok := s.Pop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}
