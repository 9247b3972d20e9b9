package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack encodes artifacts as MessagePack.
type Msgpack struct{}

func (Msgpack) Name() string { return NameMsgpack }
func (Msgpack) Ext() string  { return ".msgpack" }

func (Msgpack) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (Msgpack) MarshalList(items [][]byte) ([]byte, error) {
	raw := make([]msgpack.RawMessage, 0, len(items))
	for _, item := range items {
		raw = append(raw, msgpack.RawMessage(item))
	}
	return msgpack.Marshal(raw)
}
