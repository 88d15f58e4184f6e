package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTransaction is returned when a submitted transaction is not a
// JSON value.
var ErrInvalidTransaction = errors.New("invalid transaction")

// SubmitTransaction accepts a transaction for inclusion in the next block
// and shares it with the known peers. It returns false when the transaction
// is already pending or already mined, in which case it is not shared again.
func (s *State) SubmitTransaction(ctx context.Context, tx json.RawMessage) (bool, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, tx); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidTransaction, err)
	}

	if buf.String() == "null" {
		return false, fmt.Errorf("%w: null", ErrInvalidTransaction)
	}

	tx = json.RawMessage(buf.Bytes())

	if !s.chain.AddTransaction(tx) {
		s.evHandler("state: SubmitTransaction: already known: tx[%s]", tx)
		return false, nil
	}

	s.evHandler("state: SubmitTransaction: added: tx[%s]", tx)
	s.shareTx(ctx, tx)

	return true, nil
}
