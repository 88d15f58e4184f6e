package state

import (
	"encoding/json"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Redact replaces the payload of a block without changing its hash. This
// only works with a trapdoor hash strategy and the trapdoor key. The change
// is local, peers keep their own copy of the payload.
func (s *State) Redact(index uint64, data json.RawMessage, trapdoorKey string) (database.Block, error) {
	s.evHandler("state: Redact: started: blk[%d]", index)
	defer s.evHandler("state: Redact: completed: blk[%d]", index)

	block, err := s.chain.Redact(index, data, trapdoorKey)
	if err != nil {
		return database.Block{}, err
	}

	s.blockEvent(block)

	return block, nil
}

// blockEvent provides a specific event about a block in the chain for
// websocket clients.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		data = []byte("{}")
	}

	s.evHandler("event: block: %s", data)
}
