package replication

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is the content-subtype this codec registers under. Dialing
// with grpc.CallContentSubtype(codecName) (done automatically by Client,
// see client.go) and serving with this package's ServiceDesc is enough to
// move ordinary Go structs over the wire without a protobuf code
// generation step.
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec using
// encoding/json, standing in for protoc-gen-go's generated marshalers
// since this package was not given a .proto file to compile.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("replication: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("replication: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
