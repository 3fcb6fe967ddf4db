package llmgateway

import "encoding/json"

// DecodeJSON unmarshals a FormatJSON Response into dst, returning an error
// if the response did not carry a JSON payload or the shape does not
// match dst's fields.
func DecodeJSON(resp Response, dst interface{}) error {
	return json.Unmarshal(resp.JSON, dst)
}
