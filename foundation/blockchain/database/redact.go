package database

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// Redact replaces the payload of the block at the specified index without
// changing its hash. It requires a trapdoor hash strategy and the trapdoor
// key matching the strategy's public key. The chain stays valid since the
// hash, and so the linkage, is unchanged.
func (c *Chain) Redact(index uint64, data json.RawMessage, trapdoorKey string) (Block, error) {
	redactor, ok := c.hasher.(digest.Redactor)
	if !ok {
		return Block{}, fmt.Errorf("%w: strategy %s can't redact", ErrRedaction, c.hasher.Strategy())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if index >= uint64(len(c.blocks)) {
		return Block{}, fmt.Errorf("%w: blk[%d] out of range, length %d", ErrRedaction, index, len(c.blocks))
	}

	block := c.blocks[index]
	block.hasher = c.hasher

	updated := block
	updated.Data = data

	randomness, err := redactor.Collide(block.CanonicalInput(), updated.CanonicalInput(), block.Randomness, trapdoorKey)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrRedaction, err)
	}
	updated.Randomness = randomness

	if hash := updated.ComputeHash(); hash != block.Hash {
		return Block{}, fmt.Errorf("%w: blk[%d] hash changed to %s", ErrRedaction, index, hash)
	}

	c.blocks[index] = updated
	if index == 0 {
		c.genesis = updated
	}

	c.indexMined()

	return updated, nil
}
