// Package codec defines the serialization formats used for job artifacts.
//
// Every argument, keyword argument and return value crossing the boundary
// between the submitting process and a job process is encoded by a Codec.
// The codec is chosen per submission and recorded in artifact file names,
// so a job process can decode its input without further configuration.
package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Codec encodes and decodes artifact payloads.
type Codec interface {
	// Name returns the codec identifier ("json", "msgpack").
	Name() string

	// Ext returns the file extension of artifacts written with this codec,
	// including the leading dot.
	Ext() string

	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error

	// MarshalList encodes a list whose items are already encoded with this
	// codec, without decoding them first.
	MarshalList(items [][]byte) ([]byte, error)
}

const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

var ErrUnknownCodec = errors.New("codec: unknown codec")

// Get returns a codec by name. An empty name selects JSON.
func Get(name string) (Codec, error) {
	switch name {
	case NameJSON, "":
		return JSON{}, nil
	case NameMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// ForPath picks the codec from an artifact's file extension.
func ForPath(path string) (Codec, error) {
	switch ext := filepath.Ext(path); ext {
	case JSON{}.Ext():
		return JSON{}, nil
	case Msgpack{}.Ext():
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%w: no codec for extension %q", ErrUnknownCodec, ext)
	}
}

// ReadFile decodes the artifact at path into v. The codec is derived from
// the file extension.
func ReadFile(path string, v any) error {
	c, err := ForPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
