package validate_test

import (
	"testing"

	"github.com/ardanlabs/powchain/business/sys/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type connect struct {
	Host string `json:"host" validate:"required,peerhost"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request payloads.")
	{
		t.Logf("\tTest 0:\tWhen handling a peer address.")
		{
			if err := validate.Check(connect{Host: "127.0.0.1:9080"}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept host:port: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept host:port.", success)

			err := validate.Check(connect{Host: "localhost"})
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get field errors: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get field errors.", success)

			fields := validate.GetFieldErrors(err).Fields()
			if fields["host"] != "host must be in the host:port form" {
				t.Fatalf("\t%s\tTest 0:\tShould name the field by its json tag: %v", failed, fields)
			}
			t.Logf("\t%s\tTest 0:\tShould name the field by its json tag.", success)

			fields = validate.GetFieldErrors(validate.Check(connect{})).Fields()
			if _, exists := fields["host"]; !exists {
				t.Fatalf("\t%s\tTest 0:\tShould require the host: %v", failed, fields)
			}
			t.Logf("\t%s\tTest 0:\tShould require the host.", success)
		}
	}
}
