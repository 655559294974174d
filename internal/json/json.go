// Package json routes the module's JSON handling through goccy/go-json.
package json

import (
	"io"

	"github.com/goccy/go-json"
)

type (
	Decoder    = json.Decoder
	Encoder    = json.Encoder
	RawMessage = json.RawMessage
)

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DecodeStrict decodes a single JSON document from r into v, rejecting
// keys that v does not declare.
func DecodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func NewDecoder(r io.Reader) *Decoder {
	return json.NewDecoder(r)
}

func NewEncoder(w io.Writer) *Encoder {
	return json.NewEncoder(w)
}
