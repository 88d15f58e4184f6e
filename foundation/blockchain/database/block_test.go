package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_CanonicalInput(t *testing.T) {
	type table struct {
		name      string
		data      string
		timeStamp float64
		exp       string
	}

	tt := []table{
		{name: "string", data: `"Genesis Block"`, timeStamp: 1704067200, exp: "1abcGenesis Block1704067200.07"},
		{name: "array", data: `["tx1"]`, timeStamp: 1.5, exp: "1abc['tx1']1.57"},
		{name: "object", data: `{"a": 1, "b": [true, null]}`, timeStamp: 1.5, exp: "1abc{'a': 1, 'b': [True, None]}1.57"},
		{name: "floats", data: `[1.0, 2.5, 0.00001]`, timeStamp: 1.5, exp: "1abc[1.0, 2.5, 1e-05]1.57"},
		{name: "quote", data: `["it's"]`, timeStamp: 1.5, exp: "1abc[\"it's\"]1.57"},
		{name: "micro", data: `"x"`, timeStamp: 1700000000.123456, exp: "1abcx1700000000.1234567"},
	}

	t.Log("Given the need to produce the hash input of a block.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling payload %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					bd := database.BlockData{
						Index:     1,
						PrevHash:  "abc",
						Data:      json.RawMessage(tst.data),
						TimeStamp: tst.timeStamp,
						Nonce:     7,
					}
					block := database.ToBlock(bd, nil)

					got := string(block.CanonicalInput())
					if got != tst.exp {
						t.Fatalf("\t%s\tTest %d:\tShould get the expected input: got %q, exp %q", failed, testID, got, tst.exp)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected input.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_ComputeHash(t *testing.T) {
	t.Log("Given the need to hash a block.")
	{
		t.Logf("\tTest 0:\tWhen handling a known block.")
		{
			bd := database.BlockData{
				Index:     1,
				PrevHash:  "abc",
				Data:      json.RawMessage(`["tx1"]`),
				TimeStamp: 1.5,
				Nonce:     7,
			}
			block := database.ToBlock(bd, nil)

			const exp = "b9070e54ec011f471e9cf750abd24a870be5155c116f2f6d8b571689db728a86"
			if got := block.ComputeHash(); got != exp {
				t.Fatalf("\t%s\tTest 0:\tShould get the known hash: got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tTest 0:\tShould get the known hash.", success)

			if block.ComputeHash() != block.ComputeHash() {
				t.Fatalf("\t%s\tTest 0:\tShould get the same hash every time.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same hash every time.", success)

			changes := map[string]func(b *database.Block){
				"index":     func(b *database.Block) { b.Index++ },
				"prevHash":  func(b *database.Block) { b.PrevHash = "abd" },
				"data":      func(b *database.Block) { b.Data = json.RawMessage(`["tx2"]`) },
				"timestamp": func(b *database.Block) { b.TimeStamp += 0.000001 },
				"nonce":     func(b *database.Block) { b.Nonce++ },
			}

			for field, change := range changes {
				cpy := block
				change(&cpy)
				if cpy.ComputeHash() == exp {
					t.Fatalf("\t%s\tTest 0:\tShould get a different hash when the %s changes.", failed, field)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould get a different hash when any field changes.", success)
		}

		t.Logf("\tTest 1:\tWhen handling the default genesis block.")
		{
			block := database.NewGenesisBlock(genesis.Default(), nil)

			const exp = "10bab611428585d4a1bee288959a3bd034c1b5cff039d1366680d47e66c7e4c8"
			if block.Hash != exp {
				t.Fatalf("\t%s\tTest 1:\tShould get the known genesis hash: got %s, exp %s", failed, block.Hash, exp)
			}
			t.Logf("\t%s\tTest 1:\tShould get the known genesis hash.", success)

			if block.Index != 0 || block.PrevHash != strings.Repeat("0", 64) || block.Nonce != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould have the genesis fields: %+v", failed, block)
			}
			t.Logf("\t%s\tTest 1:\tShould have the genesis fields.", success)
		}
	}
}

func Test_Mine(t *testing.T) {
	t.Log("Given the need to mine blocks.")
	{
		for difficulty := 1; difficulty <= 4; difficulty++ {
			testID := difficulty - 1
			t.Logf("\tTest %d:\tWhen handling difficulty %d.", testID, difficulty)
			{
				block, err := database.NewBlock(digest.SHA256{}, 1, strings.Repeat("0", 64), json.RawMessage(`["tx1"]`), 0)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct a block: %v", failed, testID, err)
				}

				if err := block.Mine(context.Background(), difficulty, nil); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine the block: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to mine the block.", success, testID)

				if !strings.HasPrefix(block.Hash, strings.Repeat("0", difficulty)) {
					t.Fatalf("\t%s\tTest %d:\tShould have %d leading zeros: %s", failed, testID, difficulty, block.Hash)
				}
				t.Logf("\t%s\tTest %d:\tShould have %d leading zeros.", success, testID, difficulty)

				if !database.IsValidProof(block, difficulty) {
					t.Fatalf("\t%s\tTest %d:\tShould have a valid proof.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould have a valid proof.", success, testID)

				forged := block
				forged.Hash = strings.Repeat("0", 64)
				if database.IsValidProof(forged, difficulty) {
					t.Fatalf("\t%s\tTest %d:\tShould reject a hash that was not computed.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reject a hash that was not computed.", success, testID)
			}
		}

		t.Logf("\tTest 4:\tWhen mining is cancelled.")
		{
			block, err := database.NewBlock(nil, 1, strings.Repeat("0", 64), json.RawMessage(`["tx1"]`), 0)
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to construct a block: %v", failed, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			if err := block.Mine(ctx, 64, nil); !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tTest 4:\tShould stop when the context is done: %v", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould stop when the context is done.", success)

			if err := block.Mine(context.Background(), 65, nil); !errors.Is(err, genesis.ErrConfig) {
				t.Fatalf("\t%s\tTest 4:\tShould refuse a difficulty above the digest length: %v", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould refuse a difficulty above the digest length.", success)
		}
	}
}

func Test_BlockData(t *testing.T) {
	t.Log("Given the need to send blocks over the wire.")
	{
		t.Logf("\tTest 0:\tWhen handling a mined block.")
		{
			block, err := database.NewBlock(nil, 1, strings.Repeat("0", 64), json.RawMessage(`["tx1", {"to": "ana"}]`), 0)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct a block: %v", failed, err)
			}
			if err := block.Mine(context.Background(), 2, nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the block: %v", failed, err)
			}

			data, err := json.Marshal(database.NewBlockData(block))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to marshal the block: %v", failed, err)
			}

			var bd database.BlockData
			if err := json.Unmarshal(data, &bd); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to unmarshal the block: %v", failed, err)
			}
			got := database.ToBlock(bd, digest.SHA256{})

			if got.ComputeHash() != block.Hash || !database.IsValidProof(got, 2) {
				t.Fatalf("\t%s\tTest 0:\tShould recompute the same hash after the trip: got %s, exp %s", failed, got.ComputeHash(), block.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould recompute the same hash after the trip.", success)

			if txs := got.Transactions(); len(txs) != 2 || string(txs[0]) != `"tx1"` {
				t.Fatalf("\t%s\tTest 0:\tShould keep the transactions: %s", failed, got.Data)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the transactions.", success)
		}
	}
}
