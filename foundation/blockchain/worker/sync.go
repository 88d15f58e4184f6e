package worker

// syncOperations handles syncing the chain with the peers, on a timer or
// when signaled.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.startSync:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// runSyncOperation asks the peers for their chain and adopts the longest
// valid one.
func (w *Worker) runSyncOperation() {
	w.evHandler("worker: runSyncOperation: started")
	defer w.evHandler("worker: runSyncOperation: completed")

	replaced, err := w.state.Resync(w.ctx)
	if err != nil {
		w.evHandler("worker: runSyncOperation: WARNING: %s", err)
	}

	if replaced {
		w.evHandler("worker: runSyncOperation: chain replaced: length[%d]", w.state.Length())
	}
}
