package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// indent is used for every manifest so that stored sets stay readable with
// plain tools.
const indent = "  "

// JSON encodes manifests with encoding/json.
//
// JSON and GoJSON produce identical documents, so a manifest written by one
// decodes with the other.
type JSON struct{}

// Marshal encodes v as indented JSON with a trailing newline.
func (JSON) Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }

// GoJSON encodes manifests with github.com/goccy/go-json.
type GoJSON struct{}

// Marshal encodes v as indented JSON with a trailing newline.
func (GoJSON) Marshal(v any) ([]byte, error) {
	data, err := gojson.MarshalIndent(v, "", indent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }
