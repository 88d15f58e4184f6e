package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newNode(t *testing.T, name string) *state.State {
	gen := genesis.Default()
	gen.Difficulty = 2

	ev := func(v string, args ...any) {
		t.Logf(name+": "+v, args...)
	}

	st, err := state.New(state.Config{
		Host:        "127.0.0.1:0",
		Beneficiary: name,
		Genesis:     gen,
		EvHandler:   ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct node %s: %v", failed, name, err)
	}

	if err := st.Start(); err != nil {
		t.Fatalf("\t%s\tShould be able to start node %s: %v", failed, name, err)
	}

	worker.RunWithInterval(st, time.Hour, ev)
	t.Cleanup(func() { st.Shutdown() })

	return st
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}

	return cond()
}

// =============================================================================

func Test_Worker(t *testing.T) {
	t.Log("Given the need to run the node's background work.")
	{
		ctx := context.Background()

		nodeA := newNode(t, "A")
		nodeB := newNode(t, "B")

		t.Logf("\tTest 0:\tWhen a transaction is submitted and mining is signaled.")
		{
			if err := nodeA.ConnectPeer(ctx, nodeB.Addr()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to connect A to B: %v", failed, err)
			}

			if _, err := nodeA.SubmitTransaction(ctx, json.RawMessage(`{"to":"ana","value":10}`)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit the transaction: %v", failed, err)
			}

			if !waitFor(func() bool { return len(nodeB.Pending()) == 1 }) {
				t.Fatalf("\t%s\tTest 0:\tShould share the transaction with B.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould share the transaction with B.", success)

			if !nodeA.SignalMining() {
				t.Fatalf("\t%s\tTest 0:\tShould be able to signal mining.", failed)
			}

			if !waitFor(func() bool { return nodeA.Length() == 2 && nodeB.Length() == 2 }) {
				t.Fatalf("\t%s\tTest 0:\tShould mine and propagate the block: A %d, B %d.", failed, nodeA.Length(), nodeB.Length())
			}
			t.Logf("\t%s\tTest 0:\tShould mine and propagate the block.", success)
		}

		t.Logf("\tTest 1:\tWhen a node joins late.")
		{
			nodeC := newNode(t, "C")

			if err := nodeC.ConnectPeer(ctx, nodeA.Addr()); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to connect C to A: %v", failed, err)
			}

			nodeC.Worker.SignalSync()

			if !waitFor(func() bool { return nodeC.Length() == 2 }) {
				t.Fatalf("\t%s\tTest 1:\tShould sync the chain, length %d.", failed, nodeC.Length())
			}
			t.Logf("\t%s\tTest 1:\tShould sync the chain.", success)
		}
	}
}
