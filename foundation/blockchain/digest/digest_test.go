package digest_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_KnownVectors(t *testing.T) {
	type table struct {
		name     string
		strategy string
		input    string
		exp      string
	}

	tt := []table{
		{
			name:     "sha256",
			strategy: digest.StrategySHA256,
			input:    "abc",
			exp:      "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:     "keccak256",
			strategy: digest.StrategyKeccak256,
			input:    "",
			exp:      "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
	}

	t.Log("Given the need to hash with the supported strategies.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling strategy %s.", testID, tst.strategy)
				{
					h, err := digest.New(tst.strategy, "")
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the hasher: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to construct the hasher.", success, testID)

					got := h.Sum([]byte(tst.input), "")
					if got != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get the known digest.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the known digest.", success, testID)

					if len(got) != h.Size() {
						t.Fatalf("\t%s\tTest %d:\tShould get a digest of %d characters, got %d.", failed, testID, h.Size(), len(got))
					}
					t.Logf("\t%s\tTest %d:\tShould get a digest of %d characters.", success, testID, h.Size())
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_UnknownStrategy(t *testing.T) {
	t.Log("Given the need to reject unsupported strategies.")
	{
		_, err := digest.New("md5", "")
		if !errors.Is(err, digest.ErrUnknownStrategy) {
			t.Fatalf("\t%s\tShould get ErrUnknownStrategy, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get ErrUnknownStrategy.", success)
	}
}

func Test_IsSolved(t *testing.T) {
	type table struct {
		difficulty int
		hash       string
		exp        bool
	}

	tt := []table{
		{0, "abcd", true},
		{1, "0bcd", true},
		{2, "0bcd", false},
		{4, "0000", true},
		{5, "0000", false},
		{-1, "0000", false},
	}

	t.Log("Given the need to check a hash against a difficulty.")
	{
		for testID, tst := range tt {
			if got := digest.IsSolved(tst.difficulty, tst.hash); got != tst.exp {
				t.Errorf("\t%s\tTest %d:\tShould get %v for difficulty %d and hash %s.", failed, testID, tst.exp, tst.difficulty, tst.hash)
				continue
			}
			t.Logf("\t%s\tTest %d:\tShould get %v for difficulty %d and hash %s.", success, testID, tst.exp, tst.difficulty, tst.hash)
		}
	}
}

func Test_ChameleonCollision(t *testing.T) {
	t.Log("Given the need to rewrite content without changing its digest.")
	{
		trapdoor, public, err := digest.GenerateChameleonKey()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to generate a key.", success)

		derived, err := digest.ChameleonPublicKey(trapdoor)
		if err != nil || derived != public {
			t.Fatalf("\t%s\tShould derive the same public key: %v", failed, err)
		}
		t.Logf("\t%s\tShould derive the same public key.", success)

		h, err := digest.NewChameleon(public)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the hasher: %v", failed, err)
		}

		r, err := h.Randomness()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to draw randomness: %v", failed, err)
		}

		oldInput := []byte("1prevhashoriginal1700000000.00")
		newInput := []byte("1prevhashredacted1700000000.00")

		before := h.Sum(oldInput, r)
		if before != h.Sum(oldInput, r) {
			t.Fatalf("\t%s\tShould be deterministic.", failed)
		}
		t.Logf("\t%s\tShould be deterministic.", success)

		if before == h.Sum(newInput, r) {
			t.Fatalf("\t%s\tShould change the digest when the input changes.", failed)
		}
		t.Logf("\t%s\tShould change the digest when the input changes.", success)

		rp, err := h.Collide(oldInput, newInput, r, trapdoor)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find a collision: %v", failed, err)
		}

		if after := h.Sum(newInput, rp); after != before {
			t.Logf("\t%s\tgot: %s", failed, after)
			t.Logf("\t%s\texp: %s", failed, before)
			t.Fatalf("\t%s\tShould keep the digest after the collision.", failed)
		}
		t.Logf("\t%s\tShould keep the digest after the collision.", success)

		other, _, err := digest.GenerateChameleonKey()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a second key: %v", failed, err)
		}

		if _, err := h.Collide(oldInput, newInput, r, other); !errors.Is(err, digest.ErrUnauthorized) {
			t.Fatalf("\t%s\tShould reject a foreign trapdoor, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a foreign trapdoor.", success)
	}
}
