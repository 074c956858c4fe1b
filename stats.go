package blockalloc

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leslie-fei/blockalloc/log"
)

var statsPrinter = message.NewPrinter(language.English)

// Stats is a diagnostic snapshot, see NumUsedBlocks for its precision.
type Stats struct {
	UsedBlocks      uint64
	AllocatedBlocks uint64
	BlockSize       uint64
	ListLength      uint64
	GlobalLists     int
}

// Bytes is the memory carved from the OS for blocks.
func (s Stats) Bytes() uint64 {
	return s.BlockSize * s.AllocatedBlocks
}

func (s Stats) String() string {
	return statsPrinter.Sprintf("Used: %d, allocated: %d, block size: %d, bytes: %d",
		s.UsedBlocks, s.AllocatedBlocks, s.BlockSize, s.Bytes())
}

func (a *Allocator) Stats() Stats {
	return Stats{
		UsedBlocks:      a.NumUsedBlocks(),
		AllocatedBlocks: a.NumAllocatedBlocks(),
		BlockSize:       a.blockSize,
		ListLength:      a.listLength,
		GlobalLists:     a.global.Size(),
	}
}

// PrintStats logs a Stats snapshot at info level.
func (a *Allocator) PrintStats() {
	s := a.Stats()
	log.Get().WithFields(logrus.Fields{
		"used":         s.UsedBlocks,
		"allocated":    s.AllocatedBlocks,
		"block_size":   s.BlockSize,
		"bytes":        s.Bytes(),
		"global_lists": s.GlobalLists,
	}).Info(s.String())
}
