package public

import (
	"encoding/json"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

type chain struct {
	Length int                  `json:"length"`
	Blocks []database.BlockData `json:"blocks"`
}

type validity struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Reason string `json:"reason,omitempty"`
}

type broadcast struct {
	Tip    database.BlockData `json:"tip"`
	Peers  int                `json:"peers"`
	Failed string             `json:"failed,omitempty"`
}

type resync struct {
	Replaced bool   `json:"replaced"`
	Length   int    `json:"length"`
	Failed   string `json:"failed,omitempty"`
}

type pending struct {
	Count        int               `json:"count"`
	Transactions []json.RawMessage `json:"transactions"`
}

type submitted struct {
	Added  bool   `json:"added"`
	Status string `json:"status"`
}

type peerList struct {
	Host  string   `json:"host"`
	Peers []string `json:"peers"`
}

// =============================================================================

// NewTransaction is the payload for submitting a transaction. Any JSON value
// is a transaction.
type NewTransaction struct {
	Transaction json.RawMessage `json:"transaction" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (nt NewTransaction) Validate() error {
	return validate.Check(nt)
}

// MineRequest is the payload for mining the pending transactions. An empty
// reward address credits the node's beneficiary.
type MineRequest struct {
	RewardAddress string `json:"reward_address" validate:"omitempty,max=256"`
}

// Validate checks the data in the model is considered clean.
func (mr MineRequest) Validate() error {
	return validate.Check(mr)
}

// NewPeer is the payload for connecting to a peer.
type NewPeer struct {
	Host string `json:"host" validate:"required,peerhost"`
}

// Validate checks the data in the model is considered clean.
func (np NewPeer) Validate() error {
	return validate.Check(np)
}

// Redaction is the payload for rewriting the data of a block on a chain
// hashed with the chameleon strategy.
type Redaction struct {
	Index       uint64          `json:"index"`
	Data        json.RawMessage `json:"data" validate:"required"`
	TrapdoorKey string          `json:"trapdoor_key" validate:"required,hexadecimal"`
}

// Validate checks the data in the model is considered clean.
func (rd Redaction) Validate() error {
	return validate.Check(rd)
}
