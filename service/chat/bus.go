package chat

import (
	"context"
	"encoding/json"
)

// Envelope kinds.
const (
	TargetAll   = "all"
	TargetRoom  = "room"
	TargetRooms = "rooms"
	TargetConn  = "conn"
)

// Envelope carries one encoded outbound frame to the other nodes.
type Envelope struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	// Targets lists rooms for TargetRooms; members are deduplicated.
	Targets []string        `json:"targets,omitempty"`
	Except  string          `json:"except,omitempty"`
	Frame   json.RawMessage `json:"frame"`
}

// Bus moves envelopes between nodes. Deliveries from other nodes are passed
// to the handler given to Start.
type Bus interface {
	Start(ctx context.Context, deliver func(Envelope)) error
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// LocalBus is the single node Bus: nothing leaves the process.
type LocalBus struct{}

func (LocalBus) Start(context.Context, func(Envelope)) error { return nil }
func (LocalBus) Publish(context.Context, Envelope) error     { return nil }
func (LocalBus) Close() error                                { return nil }
