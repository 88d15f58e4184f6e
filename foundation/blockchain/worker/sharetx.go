package worker

import (
	"encoding/json"

	"github.com/ardanlabs/powchain/foundation/blockchain/mempool"
)

// maxTxShareRequests represents the max number of pending tx network share
// requests that can be outstanding before share requests are dropped. If the
// channel does become full, new transactions will not be shared and peers
// only learn about them through the mined block.
const maxTxShareRequests = 100

// =============================================================================

// shareTxOperations handles sharing new transactions. Requests queued while
// a share is running are handled together.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(w.drainTxSharing(tx))
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// drainTxSharing collects the requests waiting in the channel behind tx.
func (w *Worker) drainTxSharing(tx json.RawMessage) []json.RawMessage {
	txs := []json.RawMessage{tx}

	for {
		select {
		case tx := <-w.txSharing:
			txs = append(txs, tx)
		default:
			return txs
		}
	}
}

// runShareTxOperation shares the transactions that are still pending with
// the known peers. A transaction mined in the meantime reaches the peers
// inside its block.
func (w *Worker) runShareTxOperation(txs []json.RawMessage) {
	w.evHandler("worker: runShareTxOperation: started: txs[%d]", len(txs))
	defer w.evHandler("worker: runShareTxOperation: completed")

	pending := make(map[string]struct{})
	for _, tx := range w.state.Pending() {
		pending[mempool.Key(tx)] = struct{}{}
	}

	for _, tx := range txs {
		if _, exists := pending[mempool.Key(tx)]; !exists {
			w.evHandler("worker: runShareTxOperation: already mined: tx[%s]", tx)
			continue
		}

		if err := w.state.BroadcastTransaction(w.ctx, tx); err != nil {
			w.evHandler("worker: runShareTxOperation: WARNING: %s", err)
		}
	}
}
