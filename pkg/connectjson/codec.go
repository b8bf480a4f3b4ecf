// Package connectjson lets Connect handlers exchange plain Go structs as JSON.
package connectjson

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Name is the codec name Connect matches against the request content type.
const Name = "json"

// Codec marshals any JSON-compatible value.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(message any) ([]byte, error) {
	b, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("connectjson: marshal %T: %w", message, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("connectjson: unmarshal %T: %w", message, err)
	}
	return nil
}

// WithCodec replaces Connect's protobuf JSON codec with Codec.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
