package peer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// Set of errors for messages received from peers.
var (
	ErrUnknownMessageKind = errors.New("unknown message kind")
	ErrMalformedMessage   = errors.New("malformed message")
)

// Set of message kinds exchanged between nodes.
const (
	KindBlock       = "block"
	KindTransaction = "transaction"
	KindPeer        = "peer"
	KindChain       = "chain"
)

// Message is the single JSON object sent over a connection. The Type field
// identifies which of the other fields carries the payload.
type Message struct {
	Type        string               `json:"type"`
	Block       *database.BlockData  `json:"block,omitempty"`
	Transaction json.RawMessage      `json:"transaction,omitempty"`
	Peer        string               `json:"peer,omitempty"`
	Chain       []database.BlockData `json:"chain,omitempty"`
}

// NewBlockMessage constructs a message announcing the block.
func NewBlockMessage(block database.Block) Message {
	bd := database.NewBlockData(block)
	return Message{Type: KindBlock, Block: &bd}
}

// NewTransactionMessage constructs a message sharing the transaction.
func NewTransactionMessage(tx json.RawMessage) Message {
	return Message{Type: KindTransaction, Transaction: tx}
}

// NewPeerMessage constructs a message announcing the node at the specified
// host.
func NewPeerMessage(host string) Message {
	return Message{Type: KindPeer, Peer: host}
}

// NewChainMessage constructs a chain request when no blocks are provided and
// a chain response otherwise.
func NewChainMessage(blocks []database.Block) Message {
	msg := Message{Type: KindChain}
	for _, block := range blocks {
		msg.Chain = append(msg.Chain, database.NewBlockData(block))
	}

	return msg
}

// Decode parses the data into a message and checks the payload matching the
// message kind is present.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}

	if err := msg.Validate(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// Validate checks the message kind is known and its payload is present.
func (m Message) Validate() error {
	switch m.Type {
	case KindBlock:
		if m.Block == nil {
			return fmt.Errorf("%w: %s message without a block", ErrMalformedMessage, m.Type)
		}

	case KindTransaction:
		if len(m.Transaction) == 0 || string(m.Transaction) == "null" {
			return fmt.Errorf("%w: %s message without a transaction", ErrMalformedMessage, m.Type)
		}

	case KindPeer:
		if !New(m.Peer).Valid() {
			return fmt.Errorf("%w: %s message with host %q", ErrMalformedMessage, m.Type, m.Peer)
		}

	case KindChain:

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageKind, m.Type)
	}

	return nil
}

// Blocks converts the chain payload into blocks bound to the hash strategy.
func (m Message) Blocks(hasher digest.Hasher) []database.Block {
	blocks := make([]database.Block, len(m.Chain))
	for i, bd := range m.Chain {
		blocks[i] = database.ToBlock(bd, hasher)
	}

	return blocks
}
