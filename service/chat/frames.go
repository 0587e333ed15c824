package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InFrame is one client to server message:
//
//	{"event":"joinRoom","data":"42","ackId":"7"}
type InFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// OutFrame is one server to client message.
type OutFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*InFrame, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	var f InFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return &f, nil
}

// EncodeFrame marshals an outbound event once so fan-out can share the bytes.
func EncodeFrame(event string, data any) ([]byte, error) {
	b, err := json.Marshal(OutFrame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}

// DecodeOutFrame is the client side of EncodeFrame; data stays raw.
func DecodeOutFrame(raw []byte) (event string, data json.RawMessage, err error) {
	var f struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err = json.Unmarshal(raw, &f); err != nil {
		return "", nil, err
	}
	return f.Event, f.Data, nil
}
