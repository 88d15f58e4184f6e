package state

import (
	"encoding/json"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// Host returns the host:port of this node.
func (s *State) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.host
}

// Beneficiary returns the address credited for the blocks this node mines.
func (s *State) Beneficiary() string {
	return s.beneficiary
}

// Difficulty returns the number of leading zeros a block hash needs.
func (s *State) Difficulty() int {
	return s.chain.Difficulty()
}

// Strategy returns the name of the hash strategy.
func (s *State) Strategy() string {
	return s.chain.Hasher().Strategy()
}

// Genesis returns the genesis block.
func (s *State) Genesis() database.Block {
	return s.chain.Genesis()
}

// Blocks returns a copy of the chain.
func (s *State) Blocks() []database.Block {
	return s.chain.Blocks()
}

// Tip returns the last block of the chain.
func (s *State) Tip() (database.Block, error) {
	return s.chain.Tip()
}

// Length returns the number of blocks in the chain.
func (s *State) Length() int {
	return s.chain.Length()
}

// IsValid reports if the chain is valid.
func (s *State) IsValid() bool {
	return s.chain.IsValid()
}

// Validate checks the chain and names the first violation.
func (s *State) Validate() error {
	return s.chain.Validate()
}

// Pending returns the transactions waiting to be mined.
func (s *State) Pending() []json.RawMessage {
	return s.chain.Pending()
}

// =============================================================================

// KnownPeers retrieves a copy of the known peer list, excluding this node.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.Host())
}

// AddKnownPeer provides the ability to add a new peer to the known peer
// list. This node is never added.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.Host()) {
		return false
	}

	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from the known
// peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
