package mempool_test

import (
	"encoding/json"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	txs := []json.RawMessage{
		json.RawMessage(`"tx1"`),
		json.RawMessage(`{"from": "bill", "to": "ana", "value": 10}`),
		json.RawMessage(`"tx2"`),
	}

	t.Log("Given the need to validate mempool api.")
	{
		mp := mempool.New()

		for i, tx := range txs {
			if !mp.Upsert(tx) {
				t.Fatalf("\t%s\tShould be able to add transaction %d.", failed, i)
			}
		}
		t.Logf("\t%s\tShould be able to add the transactions.", success)

		if mp.Upsert(json.RawMessage(`{"from":"bill","to":"ana","value":10}`)) {
			t.Fatalf("\t%s\tShould reject a duplicate with different formatting.", failed)
		}
		t.Logf("\t%s\tShould reject a duplicate with different formatting.", success)

		if mp.Count() != len(txs) {
			t.Fatalf("\t%s\tShould have %d transactions, got %d.", failed, len(txs), mp.Count())
		}
		t.Logf("\t%s\tShould have %d transactions.", success, len(txs))

		mp.Delete(txs[1])
		got := mp.PickAll()
		if len(got) != 2 || string(got[0]) != `"tx1"` || string(got[1]) != `"tx2"` {
			t.Fatalf("\t%s\tShould keep arrival order after a delete, got %s.", failed, got)
		}
		t.Logf("\t%s\tShould keep arrival order after a delete.", success)

		if mp.Exists(mempool.Key(txs[1])) {
			t.Fatalf("\t%s\tShould not find the deleted transaction.", failed)
		}
		t.Logf("\t%s\tShould not find the deleted transaction.", success)

		mp.Replace([]json.RawMessage{json.RawMessage(`"Reward to miner1"`), txs[2], txs[2]})
		if mp.Count() != 2 {
			t.Fatalf("\t%s\tShould replace the pool without duplicates, got %d.", failed, mp.Count())
		}
		t.Logf("\t%s\tShould replace the pool without duplicates.", success)

		mp.Truncate()
		if mp.Count() != 0 {
			t.Fatalf("\t%s\tShould be empty after truncate.", failed)
		}
		t.Logf("\t%s\tShould be empty after truncate.", success)
	}
}
