package grpcbroadcast

import (
	"encoding/json"
	"fmt"
)

// jsonCodecName is the name jsonCodec reports; the codec is installed on
// both ends via grpc.ForceCodec / grpc.ForceServerCodec so peers agree on
// the wire format without a protoc-generated descriptor.
const jsonCodecName = "json"

// jsonCodec marshals gRPC messages as JSON instead of protobuf. Hand-rolling
// the broadcast service as a grpc.ServiceDesc plus this codec lets the
// directory's broadcast hook run over gRPC without protoc-generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpcbroadcast: unmarshal: %w", err)
	}

	return nil
}

func (jsonCodec) Name() string {
	return jsonCodecName
}
