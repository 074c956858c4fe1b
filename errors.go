package blockalloc

import "errors"

var (
	ErrNoMemory          = errors.New("memory exhausted")
	ErrMaxBlocks         = errors.New("max blocks exceeded")
	ErrBlocksInUse       = errors.New("blocks still in use")
	ErrPointerType       = errors.New("type contains pointers")
	ErrInvalidAlign      = errors.New("alignment is not a power of two")
	ErrUnsupportedMemory = errors.New("memory type not supported")
)
