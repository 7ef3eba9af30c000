package disc

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheBlocks is the default number of decoded physical blocks a
// Reader keeps. Deduplicated formats map many logical blocks to a few
// physical ones, so even a small cache absorbs most repeat reads.
const defaultCacheBlocks = 8

// blockCache holds decoded physical blocks keyed by their byte offset in
// the backing file. It is private per-Reader state and needs no locking
// beyond what the Reader itself requires.
type blockCache struct {
	blocks *lru.Cache[int64, []byte]
}

func newBlockCache(capacity, blockSize int) (*blockCache, error) {
	if capacity < 1 {
		capacity = 1
	}
	if blockSize <= 0 {
		return nil, errors.New("disc: block cache block size must be > 0")
	}
	blocks, err := lru.New[int64, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &blockCache{blocks: blocks}, nil
}

func (c *blockCache) get(off int64) ([]byte, bool) {
	return c.blocks.Get(off)
}

func (c *blockCache) add(off int64, block []byte) {
	c.blocks.Add(off, block)
}

func (c *blockCache) purge() {
	c.blocks.Purge()
}
