package v1_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	v1 "github.com/ardanlabs/powchain/business/web/v1"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NewChainError(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{name: "mismatch", err: fmt.Errorf("blk[2]: %w", database.ErrPrevHashMismatch), status: http.StatusBadRequest},
		{name: "redaction", err: fmt.Errorf("%w: strategy sha256", database.ErrRedaction), status: http.StatusBadRequest},
		{name: "proof", err: database.ErrInvalidProof, status: http.StatusUnprocessableEntity},
		{name: "peer", err: &peer.SendError{Host: "127.0.0.1:1", Err: errors.New("refused")}, status: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), status: 0},
	}

	t.Log("Given the need to map chain errors to status codes.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s error.", testID, test.name)
				{
					err := v1.NewChainError(test.err)

					if test.status == 0 {
						if v1.IsRequestError(err) {
							t.Fatalf("\t%s\tTest %d:\tShould leave the error untouched.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould leave the error untouched.", success, testID)
						return
					}

					re := v1.GetRequestError(err)
					if re == nil || re.Status != test.status {
						t.Fatalf("\t%s\tTest %d:\tShould get a status of %d: %v", failed, testID, test.status, re)
					}
					t.Logf("\t%s\tTest %d:\tShould get a status of %d.", success, testID, test.status)

					if !errors.Is(err, test.err) {
						t.Fatalf("\t%s\tTest %d:\tShould keep the wrapped error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the wrapped error.", success, testID)
				}
			}

			t.Run(test.name, tf)
		}
	}
}
