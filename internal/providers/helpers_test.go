package providers

import (
	"encoding/json"
	"net/http"
)

// httptestDecode decodes a request body into dst for assertions on what an
// adapter actually sent upstream.
func httptestDecode(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
