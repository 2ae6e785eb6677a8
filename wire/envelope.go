package wire

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Envelope is the tagged-union shape on the wire for both requests and
// responses: `{ "VariantName": <params> }`. The outer key is the variant
// tag; the value is either a single value (one parameter) or an ordered
// list (multiple parameters).
//
// Encoding goes through sjson (build); the cheap outer-key peek used by
// dispatch's Phase A goes through gjson, so a caller never has to fully
// unmarshal a body just to learn which handler it names.
type Envelope struct {
	Variant string
	Raw     []byte // the payload's raw JSON, unparsed
}

// EncodeEnvelope builds `{ "<variant>": <payload> }` from an already
// JSON-marshaled payload.
func EncodeEnvelope(variant string, payloadJSON []byte) ([]byte, error) {
	if len(payloadJSON) == 0 {
		payloadJSON = []byte("null")
	}
	out, err := sjson.SetRawBytes(nil, variant, payloadJSON)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope for %q: %w", variant, err)
	}
	return out, nil
}

// Encode marshals payload with encoding/json and wraps it as an envelope.
func Encode(variant string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %q: %w", variant, err)
	}
	return EncodeEnvelope(variant, body)
}

// PeekVariant reads only the envelope's outer key — the variant tag —
// without parsing the payload value. Used by dispatch Phase A to
// cheaply discriminate a candidate handler before fully decoding.
func PeekVariant(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", false
	}
	var variant string
	found := false
	root.ForEach(func(key, _ gjson.Result) bool {
		variant = key.String()
		found = true
		return false // only the first (and expected-only) key matters
	})
	return variant, found
}

// Decode parses body as an envelope and returns the raw payload JSON for
// the named variant's key, plus whether that key was present at all.
func Decode(body []byte) (Envelope, bool) {
	variant, ok := PeekVariant(body)
	if !ok {
		return Envelope{}, false
	}
	payload := gjson.GetBytes(body, variant)
	return Envelope{Variant: variant, Raw: []byte(payload.Raw)}, true
}

// UnmarshalPayload unmarshals an envelope's raw payload into dst.
func (e Envelope) UnmarshalPayload(dst any) error {
	if len(e.Raw) == 0 {
		return nil
	}
	return json.Unmarshal(e.Raw, dst)
}
