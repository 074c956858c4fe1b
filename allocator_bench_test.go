package blockalloc

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

type benchItem struct {
	a, b, c, d uint64
}

var benchSink unsafe.Pointer

func BenchmarkAllocator(b *testing.B) {
	a, err := NewAllocator(uint64(unsafe.Sizeof(benchItem{})), &Config{MemoryType: GO})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := a.Alloc()
			(*benchItem)(p).a = 1
			a.Free(p)
		}
	})
}

func BenchmarkAllocatorBurst(b *testing.B) {
	a, err := NewAllocator(uint64(unsafe.Sizeof(benchItem{})), &Config{MemoryType: GO})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		held := make([]unsafe.Pointer, 0, 1024)
		for pb.Next() {
			held = append(held, a.Alloc())
			if len(held) == cap(held) {
				for _, p := range held {
					a.Free(p)
				}
				held = held[:0]
			}
		}
		for _, p := range held {
			a.Free(p)
		}
	})
}

func BenchmarkTyped(b *testing.B) {
	r := NewRegistry(&Config{MemoryType: GO})
	ta := MustFor[benchItem](r)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := ta.New(benchItem{a: 1})
			ta.Delete(p)
		}
	})
}

func BenchmarkSyncPool(b *testing.B) {
	pool := sync.Pool{New: func() any { return new(benchItem) }}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := pool.Get().(*benchItem)
			p.a = 1
			pool.Put(p)
		}
	})
}

func BenchmarkNew(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := new(benchItem)
			p.a = 1
			atomic.StorePointer(&benchSink, unsafe.Pointer(p))
		}
	})
}
