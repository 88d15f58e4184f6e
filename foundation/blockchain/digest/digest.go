// Package digest provides the hash strategies used to content address the
// blocks of the chain. A strategy turns the canonical block input into a
// fixed length lowercase hex string.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Set of strategies that can be selected through configuration.
const (
	StrategySHA256    = "sha256"
	StrategyKeccak256 = "keccak256"
	StrategyChameleon = "chameleon"
)

// ErrUnknownStrategy is returned when a strategy name is not supported.
var ErrUnknownStrategy = errors.New("unknown hash strategy")

// =============================================================================

// Hasher represents the behavior required to content address a block.
type Hasher interface {

	// Strategy returns the name of the strategy.
	Strategy() string

	// Size returns the number of hex characters produced by Sum.
	Size() int

	// Sum returns the hex digest for the canonical input. The randomness is
	// only used by trapdoor strategies and ignored by the others. An empty
	// string is returned if the randomness can't be used.
	Sum(input []byte, randomness string) string

	// Randomness returns a fresh randomness value for a new block.
	Randomness() (string, error)
}

// Redactor represents a Hasher holding a trapdoor that allows the content of
// a block to change without changing its digest.
type Redactor interface {
	Hasher

	// Collide returns the randomness that makes newInput produce the same
	// digest oldInput produced with the specified randomness.
	Collide(oldInput []byte, newInput []byte, randomness string, trapdoorKey string) (string, error)
}

// =============================================================================

// New constructs the hasher for the specified strategy. The key is only
// used by the chameleon strategy and is the public key of the trapdoor.
func New(strategy string, key string) (Hasher, error) {
	switch strings.ToLower(strategy) {
	case StrategySHA256, "":
		return SHA256{}, nil

	case StrategyKeccak256:
		return Keccak256{}, nil

	case StrategyChameleon:
		return NewChameleon(key)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// ZeroHash returns the all zero digest of the specified size. It is used as
// the previous hash of the genesis block.
func ZeroHash(size int) string {
	return strings.Repeat("0", size)
}

// IsSolved checks the hash has difficulty number of leading zeros.
func IsSolved(difficulty int, hash string) bool {
	if difficulty < 0 || difficulty > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == difficulty
}

// =============================================================================

// SHA256 is the default strategy and the one the reference network uses.
type SHA256 struct{}

// Strategy implements the Hasher interface.
func (SHA256) Strategy() string {
	return StrategySHA256
}

// Size implements the Hasher interface.
func (SHA256) Size() int {
	return sha256.Size * 2
}

// Sum implements the Hasher interface.
func (SHA256) Sum(input []byte, randomness string) string {
	hash := sha256.Sum256(input)
	return hex.EncodeToString(hash[:])
}

// Randomness implements the Hasher interface.
func (SHA256) Randomness() (string, error) {
	return "", nil
}

// =============================================================================

// Keccak256 hashes the block input the way Ethereum hashes its data.
type Keccak256 struct{}

// Strategy implements the Hasher interface.
func (Keccak256) Strategy() string {
	return StrategyKeccak256
}

// Size implements the Hasher interface.
func (Keccak256) Size() int {
	return 64
}

// Sum implements the Hasher interface.
func (Keccak256) Sum(input []byte, randomness string) string {
	return hex.EncodeToString(crypto.Keccak256(input))
}

// Randomness implements the Hasher interface.
func (Keccak256) Randomness() (string, error) {
	return "", nil
}
