//go:build debug

package blockalloc

import (
	"fmt"
	"unsafe"
)

const debugChecks = true

var poolblkinit = func() []byte {
	b := make([]byte, 1024)
	for i := range b {
		b[i] = 0xa5
	}
	return b
}()

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Errorf("blockalloc: assertion failed: "+format, args...))
	}
}

// poisonblock fills a freed block so stale readers see garbage.
func poisonblock(ptr unsafe.Pointer, size uint64) {
	dst := unsafe.Slice((*byte)(ptr), size)
	for len(dst) > 0 {
		dst = dst[copy(dst, poolblkinit):]
	}
}
