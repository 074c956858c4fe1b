package blockalloc

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/leslie-fei/blockalloc/workerid"
)

type MemoryType int

const (
	GO   MemoryType = 1
	SHM  MemoryType = 2
	MMAP MemoryType = 3
)

func (t MemoryType) String() string {
	switch t {
	case GO:
		return "go"
	case SHM:
		return "shm"
	case MMAP:
		return "mmap"
	}
	return fmt.Sprintf("MemoryType(%d)", int(t))
}

// Decode implements envconfig.Decoder.
func (t *MemoryType) Decode(value string) error {
	switch strings.ToLower(value) {
	case "go":
		*t = GO
	case "shm":
		*t = SHM
	case "mmap", "":
		*t = MMAP
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMemory, value)
	}
	return nil
}

// ReservePolicy decides what Reserve does.
type ReservePolicy int

const (
	// ReserveNone ignores reservations.
	ReserveNone ReservePolicy = iota
	// ReserveEager carves whole chains up front and parks them in the
	// global pool.
	ReserveEager
)

// Decode implements envconfig.Decoder.
func (p *ReservePolicy) Decode(value string) error {
	switch strings.ToLower(value) {
	case "none", "":
		*p = ReserveNone
	case "eager":
		*p = ReserveEager
	default:
		return fmt.Errorf("unknown reserve policy %q", value)
	}
	return nil
}

const (
	// defaultListBytes is the target size of one chain.
	defaultListBytes = 256*KB - 64
	// defaultBlockAlign mirrors the strictest alignment of a scalar type.
	defaultBlockAlign = 16
	// minBlockAlign keeps regions cache line padded.
	minBlockAlign = 128
	// maxBlocksBytes bounds blocks_allocated * block_size.
	maxBlocksBytes = 1_000_000_000_000
	// minListLength keeps the split marker below the split point.
	minListLength = 2
)

type Config struct {
	// memory type in GO SHM MMAP
	MemoryType MemoryType `envconfig:"MEMORY_TYPE"`
	// MMAP: directory of backing files, anonymous mappings when empty
	MemoryKey string `envconfig:"MEMORY_KEY"`
	// alignment of the start of every region, raised to 128. Blocks after
	// the first are only aligned as far as the block size allows
	BlockAlign uint64 `envconfig:"BLOCK_ALIGN"`
	// blocks per chain, 0 fits a chain in about 256KB
	ListLength uint64 `envconfig:"LIST_LENGTH"`
	// ceiling of blocks ever carved, 0 derives it from the block size
	MaxBlocks uint64 `envconfig:"MAX_BLOCKS"`
	// blocks reserved when the allocator is built
	ReservedBlocks uint64 `envconfig:"RESERVED_BLOCKS"`
	Reserve        ReservePolicy `envconfig:"RESERVE"`
	// number of worker slots, 0 sizes them from GOMAXPROCS
	MaxWorkers int `envconfig:"MAX_WORKERS"`

	Identity workerid.Identity `ignored:"true"`
	Source   Source            `ignored:"true"`
}

func DefaultConfig() *Config {
	var defaultConfig = &Config{
		MemoryType: MMAP,
		BlockAlign: defaultBlockAlign,
		Reserve:    ReserveNone,
	}
	return defaultConfig
}

// LoadConfig reads the configuration from prefixed environment variables,
// e.g. BLOCKALLOC_MEMORY_TYPE=go.
func LoadConfig(prefix string) (*Config, error) {
	c := DefaultConfig()
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, err
	}
	return c, nil
}

func mergeConfig(c *Config) *Config {
	config := DefaultConfig()
	if c == nil {
		return config
	}
	merged := *c
	if merged.MemoryType == 0 {
		merged.MemoryType = config.MemoryType
	}
	if merged.BlockAlign == 0 {
		merged.BlockAlign = config.BlockAlign
	}
	return &merged
}
