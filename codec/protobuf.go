package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf is a Body codec for record types generated from protobuf schemas.
// Values handed to Marshal/Unmarshal must implement proto.Message; anything
// else (including opaque non-record values) is an error.
type Protobuf struct{}

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T does not implement proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Unmarshal(b []byte, into any) error {
	m, ok := into.(proto.Message)
	if !ok {
		return fmt.Errorf("codec: %T does not implement proto.Message", into)
	}
	return proto.Unmarshal(b, m)
}
