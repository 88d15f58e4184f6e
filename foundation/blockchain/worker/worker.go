// Package worker implements mining, transaction sharing and chain syncing
// for the blockchain node.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
)

// syncInterval represents the interval of asking the peers for their chain
// and adopting the longest valid one.
const syncInterval = time.Minute

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	ticker      *time.Ticker
	shut        chan struct{}
	startMining chan bool
	startSync   chan bool
	txSharing   chan json.RawMessage
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	return RunWithInterval(st, syncInterval, evHandler)
}

// RunWithInterval is Run with the specified interval between syncs.
func RunWithInterval(st *state.State, interval time.Duration, evHandler state.EventHandler) *Worker {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	if interval <= 0 {
		interval = syncInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:       st,
		ctx:         ctx,
		cancel:      cancel,
		ticker:      time.NewTicker(interval),
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		startSync:   make(chan bool, 1),
		txSharing:   make(chan json.RawMessage, maxTxShareRequests),
		evHandler:   ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.SignalSync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.syncOperations,
		w.miningOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: cancel operations")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalSync starts a sync with the peers. If there is already a signal
// pending in the channel, just return since a sync will start.
func (w *Worker) SignalSync() {
	select {
	case w.startSync <- true:
	default:
	}
	w.evHandler("worker: SignalSync: sync signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx json.RawMessage) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
