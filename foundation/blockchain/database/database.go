// Package database maintains the in memory blockchain: the blocks, the proof
// of work rules and the pool of transactions waiting to be mined.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/mempool"
)

// Chain manages the ordered set of blocks. All changes to the set of blocks
// are serialized by the mutex so the linkage between blocks always holds.
type Chain struct {
	mu sync.RWMutex

	hasher     digest.Hasher
	difficulty int
	genesis    Block
	blocks     []Block
	mined      map[string]struct{}

	pending *mempool.Mempool
}

// NewChain constructs a chain holding only the genesis block.
func NewChain(gen genesis.Genesis, hasher digest.Hasher) (*Chain, error) {
	if hasher == nil {
		hasher = digest.SHA256{}
	}

	if err := gen.Validate(hasher.Size()); err != nil {
		return nil, err
	}

	genesisBlock := NewGenesisBlock(gen, hasher)

	c := Chain{
		hasher:     hasher,
		difficulty: gen.Difficulty,
		genesis:    genesisBlock,
		blocks:     []Block{genesisBlock},
		mined:      make(map[string]struct{}),
		pending:    mempool.New(),
	}

	return &c, nil
}

// Hasher returns the hash strategy used by the chain.
func (c *Chain) Hasher() digest.Hasher {
	return c.hasher
}

// Difficulty returns the number of leading zeros a block hash needs.
func (c *Chain) Difficulty() int {
	return c.difficulty
}

// Genesis returns the genesis block of the network.
func (c *Chain) Genesis() Block {
	return c.genesis
}

// Tip returns the last block of the chain.
func (c *Chain) Tip() (Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}

	return c.blocks[len(c.blocks)-1], nil
}

// Length returns the number of blocks including the genesis block.
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// Blocks returns a copy of the blocks.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cpy := make([]Block, len(c.blocks))
	copy(cpy, c.blocks)

	return cpy
}

// Pending returns a copy of the transactions waiting to be mined.
func (c *Chain) Pending() []json.RawMessage {
	return c.pending.PickAll()
}

// =============================================================================

// Append adds the block to the end of the chain. The block must point to the
// current tip and carry a valid proof. Transactions held by the block are
// removed from the pending pool.
func (c *Chain) Append(block Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.append(block)
}

// AddTransaction adds the transaction to the pending pool. It returns false
// if the same record is already pending or was already mined.
func (c *Chain) AddTransaction(tx json.RawMessage) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, mined := c.mined[mempool.Key(tx)]; mined {
		return false
	}

	return c.pending.Upsert(tx)
}

// MinePending mines a new block over the tip holding the pending
// transactions. Once the block is appended, the pending pool is replaced by
// the reward record for the specified address. The search happens without
// holding the lock, so if the tip changed in the meantime the block is
// rejected with ErrPrevHashMismatch and the pool is left alone.
func (c *Chain) MinePending(ctx context.Context, rewardAddress string, evHandler func(v string, args ...any)) (Block, error) {
	c.mu.RLock()
	tip := c.blocks[len(c.blocks)-1]
	txs := c.pending.PickAll()
	c.mu.RUnlock()

	if len(txs) == 0 {
		return Block{}, ErrNoWorkAvailable
	}

	data, err := json.Marshal(txs)
	if err != nil {
		return Block{}, fmt.Errorf("marshal transactions: %w", err)
	}

	block, err := NewBlock(c.hasher, tip.Index+1, tip.Hash, data, 0)
	if err != nil {
		return Block{}, err
	}

	if err := block.Mine(ctx, c.difficulty, evHandler); err != nil {
		return Block{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.append(block); err != nil {
		return Block{}, err
	}

	reward, err := json.Marshal(fmt.Sprintf("Reward to %s", rewardAddress))
	if err != nil {
		return Block{}, fmt.Errorf("marshal reward: %w", err)
	}

	// Records that arrived during the search are still pending. They are
	// kept behind the reward.
	c.pending.Replace(append([]json.RawMessage{reward}, c.pending.PickAll()...))

	return block, nil
}

// =============================================================================

// IsValid reports if every block of the chain is correctly hashed, linked
// and proven.
func (c *Chain) IsValid() bool {
	return c.Validate() == nil
}

// Validate checks the chain and names the first violation found.
func (c *Chain) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.validate(c.blocks)
}

// ValidateBlocks checks a candidate set of blocks under the rules of this
// chain.
func (c *Chain) ValidateBlocks(blocks []Block) error {
	return c.validate(blocks)
}

// ResolveConflicts implements the longest valid chain rule. The longest
// candidate that is strictly longer than this chain and valid replaces the
// blocks. Candidates of equal length never replace the chain. It returns
// true if the blocks were replaced.
func (c *Chain) ResolveConflicts(candidates [][]Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	maxLength := len(c.blocks)
	var longest []Block

	for _, candidate := range candidates {
		if len(candidate) > maxLength && c.validate(candidate) == nil {
			maxLength = len(candidate)
			longest = candidate
		}
	}

	if longest == nil {
		return false
	}

	blocks := make([]Block, len(longest))
	for i, block := range longest {
		block.hasher = c.hasher
		blocks[i] = block
	}
	c.blocks = blocks

	c.indexMined()

	return true
}

// =============================================================================

// append performs the checks and the write. The caller must hold the lock.
func (c *Chain) append(block Block) error {
	if len(c.blocks) == 0 {
		return ErrEmptyChain
	}
	tip := c.blocks[len(c.blocks)-1]

	// The block is validated with the strategy of this chain no matter what
	// it was constructed with.
	block.hasher = c.hasher

	if block.PrevHash != tip.Hash {
		return fmt.Errorf("%w: blk[%d] previous hash %s, tip blk[%d] hash %s", ErrPrevHashMismatch, block.Index, block.PrevHash, tip.Index, tip.Hash)
	}

	if !IsValidProof(block, c.difficulty) {
		return fmt.Errorf("%w: blk[%d] hash %s, computed %s, difficulty %d", ErrInvalidProof, block.Index, block.Hash, block.ComputeHash(), c.difficulty)
	}

	c.blocks = append(c.blocks, block)

	txs := block.Transactions()
	for _, tx := range txs {
		c.mined[mempool.Key(tx)] = struct{}{}
	}
	c.pending.Delete(txs...)

	return nil
}

// validate checks the genesis block and then every consecutive pair.
func (c *Chain) validate(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	first := blocks[0]
	first.hasher = c.hasher
	if first.Hash != c.genesis.Hash || first.ComputeHash() != first.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrGenesisMismatch, first.Hash, c.genesis.Hash)
	}

	for i := 1; i < len(blocks); i++ {
		prev := blocks[i-1]
		block := blocks[i]
		block.hasher = c.hasher

		if hash := block.ComputeHash(); hash != block.Hash {
			return fmt.Errorf("%w: blk[%d] hash %s, computed %s", ErrInvalidProof, block.Index, block.Hash, hash)
		}

		if block.PrevHash != prev.Hash {
			return fmt.Errorf("%w: blk[%d] previous hash %s, blk[%d] hash %s", ErrPrevHashMismatch, block.Index, block.PrevHash, prev.Index, prev.Hash)
		}

		if !digest.IsSolved(c.difficulty, block.Hash) {
			return fmt.Errorf("%w: blk[%d] hash %s, difficulty %d", ErrInvalidProof, block.Index, block.Hash, c.difficulty)
		}
	}

	return nil
}

// indexMined rebuilds the set of mined transactions and drops them from the
// pending pool. The caller must hold the lock.
func (c *Chain) indexMined() {
	c.mined = make(map[string]struct{})

	var txs []json.RawMessage
	for _, block := range c.blocks {
		for _, tx := range block.Transactions() {
			c.mined[mempool.Key(tx)] = struct{}{}
			txs = append(txs, tx)
		}
	}

	c.pending.Delete(txs...)
}
