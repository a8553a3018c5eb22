package stream

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes an event for the wire.
func Encode(evt MessageEvent) ([]byte, error) {
	data, err := msgpack.Marshal(&evt)
	if err != nil {
		return nil, fmt.Errorf("encoding message event: %w", err)
	}
	return data, nil
}

// Decode parses an event produced by Encode.
func Decode(data []byte) (MessageEvent, error) {
	var evt MessageEvent
	if err := msgpack.Unmarshal(data, &evt); err != nil {
		return MessageEvent{}, fmt.Errorf("decoding message event: %w", err)
	}
	if evt.TeamID == "" {
		return MessageEvent{}, fmt.Errorf("decoding message event: missing team id")
	}
	return evt, nil
}
