package salesforce

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// decodeBody decodes a Salesforce REST response body into out.
func decodeBody(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return eris.Wrap(err, "salesforce: decode response")
	}
	return nil
}
