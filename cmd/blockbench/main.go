package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslie-fei/blockalloc"
	"github.com/leslie-fei/blockalloc/log"
)

func main() {
	var (
		workers   int
		rounds    int
		burst     int
		blockSize uint64
		memType   string
	)

	// Example command: go run ./cmd/blockbench -w 8 -r 100000 -b 256 -t mmap
	flag.IntVar(&workers, "w", 8, "number of worker goroutines")
	flag.IntVar(&rounds, "r", 100_000, "rounds per worker")
	flag.IntVar(&burst, "b", 64, "max blocks a worker holds before freeing them all")
	flag.Uint64Var(&blockSize, "s", 64, "block size in bytes")
	flag.StringVar(&memType, "t", "", "memory type go|shm|mmap, overrides BLOCKALLOC_MEMORY_TYPE")
	flag.Parse()

	logger := log.Get()

	config, err := blockalloc.LoadConfig("blockalloc")
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if memType != "" {
		if err = config.MemoryType.Decode(memType); err != nil {
			logger.WithError(err).Fatal("memory type")
		}
	}

	alloc, err := blockalloc.NewAllocator(blockSize, config)
	if err != nil {
		logger.WithError(err).Fatal("new allocator")
	}

	logger.WithFields(logrus.Fields{
		"workers":     workers,
		"rounds":      rounds,
		"burst":       burst,
		"block_size":  alloc.BlockSize(),
		"list_length": alloc.ListLength(),
		"memory":      config.MemoryType,
	}).Info("blockbench start")

	start := time.Now()
	res := run(alloc, workers, rounds, burst)
	elapsed := time.Since(start)

	alloc.PrintStats()
	logger.WithFields(logrus.Fields{
		"ops":        res.ops,
		"elapsed":    elapsed,
		"ns_per_op":  elapsed.Nanoseconds() / max(res.ops, 1),
		"mismatches": res.mismatches,
	}).Info("blockbench done")

	if err = alloc.Close(); err != nil {
		logger.WithError(err).Error("close allocator")
		os.Exit(1)
	}
	if res.mismatches > 0 {
		os.Exit(1)
	}
}
