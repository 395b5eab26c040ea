package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns messages into websocket frames and back.
type Codec interface {
	Name() string
	// Binary reports whether frames produced by the codec are binary.
	Binary() bool
	Marshal(m *Message) ([]byte, error)
	Unmarshal(data []byte, m *Message) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// JSON is the default codec, spoken by browser clients.
var JSON Codec = jsonCodec{}

// Msgpack is the compact binary codec.
var Msgpack Codec = msgpackCodec{}

// CodecByName resolves a codec name; an empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSON, nil
	case CodecMsgpack:
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                            { return CodecJSON }
func (jsonCodec) Binary() bool                            { return false }
func (jsonCodec) Marshal(m *Message) ([]byte, error)      { return json.Marshal(m) }
func (jsonCodec) Unmarshal(data []byte, m *Message) error { return json.Unmarshal(data, m) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return CodecMsgpack }
func (msgpackCodec) Binary() bool                       { return true }
func (msgpackCodec) Marshal(m *Message) ([]byte, error) { return msgpack.Marshal(m) }
func (msgpackCodec) Unmarshal(data []byte, m *Message) error {
	return msgpack.Unmarshal(data, m)
}
