// Package genesis maintains access to the genesis settings of the network.
// Every node on a network must agree on these values or the genesis block
// and proof rules will differ.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrConfig is returned when the genesis settings can't be used to run a
// node safely.
var ErrConfig = errors.New("configuration error")

// Marker is the payload carried by the genesis block.
const Marker = "Genesis Block"

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time `json:"date"`                    // Timestamp of the genesis block.
	Difficulty   int       `json:"difficulty"`              // Number of leading 0's needed to solve the hash solution.
	Strategy     string    `json:"hash_strategy"`           // Name of the digest strategy used to hash blocks.
	ChameleonKey string    `json:"chameleon_key,omitempty"` // Public key when the chameleon strategy is used.
	Marker       string    `json:"marker"`                  // Payload of the genesis block.
}

// Default returns the settings used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty: 2,
		Strategy:   "sha256",
		Marker:     Marker,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("%w: genesis file %s: %s", ErrConfig, path, err)
	}

	return genesis, nil
}

// Validate checks the difficulty can be satisfied by a digest of the
// specified number of hex characters.
func (g Genesis) Validate(digestSize int) error {
	if g.Difficulty < 1 {
		return fmt.Errorf("%w: difficulty must be positive, got %d", ErrConfig, g.Difficulty)
	}

	if g.Difficulty > digestSize {
		return fmt.Errorf("%w: difficulty %d exceeds digest length %d", ErrConfig, g.Difficulty, digestSize)
	}

	return nil
}
