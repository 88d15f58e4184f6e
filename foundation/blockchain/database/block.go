package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// Block represents a group of transactions linked to its parent block by
// the parent's hash.
type Block struct {
	Index      uint64          // Position in the chain, the genesis block is 0.
	PrevHash   string          // Hash of the previous block in the chain.
	Data       json.RawMessage // Opaque payload, an array of transactions for mined blocks.
	TimeStamp  float64         // Seconds since the epoch the block was created.
	Nonce      uint64          // Value identified to solve the hash solution.
	Randomness string          // Only used by trapdoor hash strategies.
	Hash       string          // Digest of all the fields above.

	hasher digest.Hasher
}

// NewBlock constructs a block with a zero nonce and computes its hash. If
// the timestamp is zero, the current time is used.
func NewBlock(hasher digest.Hasher, index uint64, prevHash string, data json.RawMessage, timeStamp float64) (Block, error) {
	if hasher == nil {
		hasher = digest.SHA256{}
	}

	if timeStamp == 0 {
		timeStamp = Now()
	}

	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	randomness, err := hasher.Randomness()
	if err != nil {
		return Block{}, fmt.Errorf("randomness: %w", err)
	}

	b := Block{
		Index:      index,
		PrevHash:   prevHash,
		Data:       data,
		TimeStamp:  timeStamp,
		Nonce:      0,
		Randomness: randomness,
		hasher:     hasher,
	}
	b.Hash = b.ComputeHash()

	return b, nil
}

// NewGenesisBlock constructs the first block of the chain. Every field is
// derived from the genesis settings so all nodes of a network produce the
// same block. The genesis block is not mined.
func NewGenesisBlock(gen genesis.Genesis, hasher digest.Hasher) Block {
	if hasher == nil {
		hasher = digest.SHA256{}
	}

	// Marshaling a string can't fail.
	data, _ := json.Marshal(gen.Marker)

	b := Block{
		Index:     0,
		PrevHash:  digest.ZeroHash(hasher.Size()),
		Data:      data,
		TimeStamp: float64(gen.Date.Unix()),
		hasher:    hasher,
	}
	b.Hash = b.ComputeHash()

	return b
}

// Now returns the current time in seconds with microsecond precision.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}

// Hasher returns the hash strategy bound to the block.
func (b Block) Hasher() digest.Hasher {
	if b.hasher == nil {
		return digest.SHA256{}
	}
	return b.hasher
}

// CanonicalInput returns the string the hash is computed from: index,
// previous hash, payload, timestamp and nonce concatenated in that order.
func (b Block) CanonicalInput() []byte {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteString(b.PrevHash)
	sb.WriteString(stringify(b.Data))
	sb.WriteString(formatFloat(b.TimeStamp))
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))

	return []byte(sb.String())
}

// ComputeHash returns the digest of the block's fields. It has no side
// effects.
func (b Block) ComputeHash() string {
	return b.Hasher().Sum(b.CanonicalInput(), b.Randomness)
}

// Transactions returns the records held by the payload. Only payloads that
// are JSON arrays hold transactions.
func (b Block) Transactions() []json.RawMessage {
	var txs []json.RawMessage
	if err := json.Unmarshal(b.Data, &txs); err != nil {
		return nil
	}

	return txs
}

// Mine does the work of finding a nonce that gives the block a hash with
// difficulty leading zeros. Pointer semantics are being used since the nonce
// and hash are updated in place. The search only ends early if the context
// is cancelled.
func (b *Block) Mine(ctx context.Context, difficulty int, evHandler func(v string, args ...any)) error {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	if difficulty < 0 || difficulty > b.Hasher().Size() {
		return fmt.Errorf("%w: difficulty %d exceeds digest length %d", genesis.ErrConfig, difficulty, b.Hasher().Size())
	}

	ev("database: Mine: MINING: started: blk[%d]", b.Index)
	defer ev("database: Mine: MINING: completed: blk[%d]", b.Index)

	var attempts uint64
	for !digest.IsSolved(difficulty, b.Hash) {
		if ctx.Err() != nil {
			ev("database: Mine: MINING: CANCELLED: attempts[%d]", attempts)
			return ctx.Err()
		}

		b.Nonce++
		b.Hash = b.ComputeHash()

		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: Mine: MINING: attempts[%d]", attempts)
		}
	}

	ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.PrevHash, b.Hash, attempts)

	return nil
}

// IsValidProof checks the stored hash is the digest of the block's fields
// and that it satisfies the difficulty. This is the gate for every block,
// whether it was mined locally or received from a peer.
func IsValidProof(b Block, difficulty int) bool {
	if b.Hash != b.ComputeHash() {
		return false
	}

	return digest.IsSolved(difficulty, b.Hash)
}

// =============================================================================

// BlockData represents the block as it travels on the wire.
type BlockData struct {
	Index      uint64          `json:"index"`
	PrevHash   string          `json:"previous_hash"`
	Data       json.RawMessage `json:"data"`
	TimeStamp  float64         `json:"timestamp"`
	Nonce      uint64          `json:"nonce"`
	Randomness string          `json:"randomness,omitempty"`
	Hash       string          `json:"hash"`
}

// NewBlockData constructs the value to serialize onto the wire.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Index:      block.Index,
		PrevHash:   block.PrevHash,
		Data:       block.Data,
		TimeStamp:  block.TimeStamp,
		Nonce:      block.Nonce,
		Randomness: block.Randomness,
		Hash:       block.Hash,
	}
}

// ToBlock converts a BlockData into a Block bound to the hash strategy. The
// hash is taken as provided so it can be validated.
func ToBlock(blockData BlockData, hasher digest.Hasher) Block {
	data := blockData.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	return Block{
		Index:      blockData.Index,
		PrevHash:   blockData.PrevHash,
		Data:       data,
		TimeStamp:  blockData.TimeStamp,
		Nonce:      blockData.Nonce,
		Randomness: blockData.Randomness,
		Hash:       blockData.Hash,
		hasher:     hasher,
	}
}
