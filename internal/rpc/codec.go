// Package rpc exposes the auth, expense and group services over Connect.
// Messages are plain Go structs carried as JSON.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec replaces Connect's protobuf-backed "json" codec so handlers and
// clients can exchange ordinary structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// WithJSON configures a Connect handler or client to use the JSON codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
