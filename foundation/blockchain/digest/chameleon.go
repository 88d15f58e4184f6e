package digest

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of errors for the chameleon strategy.
var (
	ErrInvalidKey   = errors.New("invalid chameleon key")
	ErrUnauthorized = errors.New("trapdoor key does not match the chameleon key")
)

// The group is the subgroup of prime order q of the integers modulo the
// safe prime p = 2q + 1. The generator 4 is a quadratic residue so it
// generates that subgroup.
var (
	groupP, _ = new(big.Int).SetString("a84a528f12cb5074f9360894b1fadf7499d6db7a6d36cfd4bb6d48a9a2942d1f", 16)
	groupQ, _ = new(big.Int).SetString("542529478965a83a7c9b044a58fd6fba4ceb6dbd369b67ea5db6a454d14a168f", 16)
	groupG    = big.NewInt(4)
)

// Chameleon implements a discrete log chameleon hash: H(m, r) = g^m * h^r
// mod p with h = g^x. Anyone holding the public key h can compute and verify
// digests. Only the holder of the trapdoor x can find collisions.
type Chameleon struct {
	key *big.Int
}

// NewChameleon constructs a chameleon strategy from the hex encoded public
// key.
func NewChameleon(publicKey string) (*Chameleon, error) {
	h, err := hexutil.DecodeBig(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	if h.Cmp(big.NewInt(1)) <= 0 || h.Cmp(groupP) >= 0 {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidKey)
	}

	if new(big.Int).Exp(h, groupQ, groupP).Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("%w: not a member of the group", ErrInvalidKey)
	}

	return &Chameleon{key: h}, nil
}

// GenerateChameleonKey produces a new trapdoor and its public key.
func GenerateChameleonKey() (trapdoorKey string, publicKey string, err error) {
	x, err := rand.Int(rand.Reader, new(big.Int).Sub(groupQ, big.NewInt(1)))
	if err != nil {
		return "", "", err
	}
	x.Add(x, big.NewInt(1))

	h := new(big.Int).Exp(groupG, x, groupP)

	return hexutil.EncodeBig(x), hexutil.EncodeBig(h), nil
}

// ChameleonPublicKey derives the public key for the specified trapdoor.
func ChameleonPublicKey(trapdoorKey string) (string, error) {
	x, err := decodeTrapdoor(trapdoorKey)
	if err != nil {
		return "", err
	}

	return hexutil.EncodeBig(new(big.Int).Exp(groupG, x, groupP)), nil
}

// Strategy implements the Hasher interface.
func (c *Chameleon) Strategy() string {
	return StrategyChameleon
}

// Size implements the Hasher interface.
func (c *Chameleon) Size() int {
	return 64
}

// PublicKey returns the hex encoded public key.
func (c *Chameleon) PublicKey() string {
	return hexutil.EncodeBig(c.key)
}

// Sum implements the Hasher interface.
func (c *Chameleon) Sum(input []byte, randomness string) string {
	r, err := decodeRandomness(randomness)
	if err != nil {
		return ""
	}

	m := message(input)

	gm := new(big.Int).Exp(groupG, m, groupP)
	hr := new(big.Int).Exp(c.key, r, groupP)
	v := gm.Mul(gm, hr)
	v.Mod(v, groupP)

	return fmt.Sprintf("%064x", v)
}

// Randomness implements the Hasher interface.
func (c *Chameleon) Randomness() (string, error) {
	r, err := rand.Int(rand.Reader, groupQ)
	if err != nil {
		return "", err
	}

	return hexutil.EncodeBig(r), nil
}

// Collide implements the Redactor interface. With m + x*r = m' + x*r' the
// new randomness is r' = r + (m - m') / x mod q.
func (c *Chameleon) Collide(oldInput []byte, newInput []byte, randomness string, trapdoorKey string) (string, error) {
	x, err := decodeTrapdoor(trapdoorKey)
	if err != nil {
		return "", err
	}

	if new(big.Int).Exp(groupG, x, groupP).Cmp(c.key) != 0 {
		return "", ErrUnauthorized
	}

	r, err := decodeRandomness(randomness)
	if err != nil {
		return "", err
	}

	inv := new(big.Int).ModInverse(x, groupQ)
	if inv == nil {
		return "", fmt.Errorf("%w: trapdoor not invertible", ErrInvalidKey)
	}

	delta := new(big.Int).Sub(message(oldInput), message(newInput))
	delta.Mul(delta, inv)

	rp := delta.Add(delta, r)
	rp.Mod(rp, groupQ)

	return hexutil.EncodeBig(rp), nil
}

// =============================================================================

// message maps the input into the exponent group.
func message(input []byte) *big.Int {
	sum := sha256.Sum256(input)
	m := new(big.Int).SetBytes(sum[:])
	return m.Mod(m, groupQ)
}

// decodeRandomness parses the randomness. The genesis block carries no
// randomness which is treated as zero.
func decodeRandomness(randomness string) (*big.Int, error) {
	if randomness == "" {
		return new(big.Int), nil
	}

	r, err := hexutil.DecodeBig(randomness)
	if err != nil {
		return nil, fmt.Errorf("randomness: %w", err)
	}

	return r.Mod(r, groupQ), nil
}

// decodeTrapdoor parses the trapdoor and checks it is a usable exponent.
func decodeTrapdoor(trapdoorKey string) (*big.Int, error) {
	x, err := hexutil.DecodeBig(trapdoorKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	if x.Sign() <= 0 || x.Cmp(groupQ) >= 0 {
		return nil, fmt.Errorf("%w: trapdoor out of range", ErrInvalidKey)
	}

	return x, nil
}
