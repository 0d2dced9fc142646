package encoding

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// Codec encodes the payloads stored in the database and in caches.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is a Codec backed by json-iterator. Its output matches encoding/json.
type JSONCodec struct {
	api jsoniter.API
}

// NewJSONCodec creates a codec configured to be compatible with encoding/json.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

// Marshal encodes v without a trailing newline
func (c *JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := c.api.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

// MarshalIndent encodes v with the given indentation, for human readers
func (c *JSONCodec) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	data, err := c.api.MarshalIndent(v, prefix, indent)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

// Unmarshal decodes data into v
func (c *JSONCodec) Unmarshal(data []byte, v any) error {
	if err := c.api.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Encode writes v to w using the pooled stream of the underlying API
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	stream := c.api.BorrowStream(w)
	defer c.api.ReturnStream(stream)

	stream.WriteVal(v)
	if stream.Error != nil {
		return fmt.Errorf("encode json: %w", stream.Error)
	}
	return stream.Flush()
}

// Global codec instance
var defaultCodec = NewJSONCodec()

// Default returns the shared codec.
func Default() *JSONCodec {
	return defaultCodec
}
