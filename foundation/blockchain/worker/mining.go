package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the pending transactions into a new block and
// sends it to the peers. A block accepted from a peer cancels the search,
// in which case a new operation is signaled for what is still pending.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.MineAndBroadcast(w.ctx, "")
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, database.ErrNoWorkAvailable):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions to mine")

		case w.ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")

		case errors.Is(err, context.Canceled), errors.Is(err, database.ErrPrevHashMismatch):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: tip changed: pending[%d]", len(w.state.Pending()))
			if len(w.state.Pending()) > 0 {
				w.SignalStartMining()
			}

		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: blk[%d]: hash[%s]", block.Index, block.Hash)
}
