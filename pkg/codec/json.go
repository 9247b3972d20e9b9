package codec

import "encoding/json"

// JSON encodes artifacts with encoding/json.
type JSON struct{}

func (JSON) Name() string { return NameJSON }
func (JSON) Ext() string  { return ".json" }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSON) MarshalList(items [][]byte) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw = append(raw, json.RawMessage(item))
	}
	return json.Marshal(raw)
}
