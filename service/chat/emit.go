package chat

import (
	"context"

	"SMProject/logger"
	"SMProject/service/storage"
	"SMProject/tools/ids"

	"go.uber.org/zap"
)

// Emit helpers run on the hub goroutine.

func (h *Hub) deliver(c *Client, b []byte) bool {
	if c.removed {
		return false
	}
	if c.trySend(b) {
		return true
	}
	if h.closing {
		return false
	}
	h.evict(c, "send_queue_full")
	return false
}

func (h *Hub) encode(event string, data any) ([]byte, bool) {
	b, err := EncodeFrame(event, data)
	if err != nil {
		logger.Error("encode outbound frame", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return b, true
}

// EmitTo sends one event to one local connection.
func (h *Hub) EmitTo(c *Client, event string, data any) bool {
	b, ok := h.encode(event, data)
	if !ok {
		return false
	}
	return h.deliver(c, b)
}

// EmitRoom sends to every member of room on every node, except one
// connection when except is set.
func (h *Hub) EmitRoom(room, event string, data any, except *Client) int {
	b, ok := h.encode(event, data)
	if !ok {
		return 0
	}
	env := Envelope{Kind: TargetRoom, Target: room, Frame: b}
	if except != nil {
		env.Except = except.ID
	}
	h.publish(env)
	return h.deliverRoom(room, b, env.Except)
}

// EmitAll sends to every connection on every node.
func (h *Hub) EmitAll(event string, data any, except *Client) int {
	b, ok := h.encode(event, data)
	if !ok {
		return 0
	}
	env := Envelope{Kind: TargetAll, Frame: b}
	if except != nil {
		env.Except = except.ID
	}
	h.publish(env)
	if h.closing {
		return 0
	}
	return h.deliverAll(b, env.Except)
}

// EmitToIdentity delivers to the connection registered for identity,
// wherever it lives. False means the identity has no registered connection.
func (h *Hub) EmitToIdentity(ctx context.Context, identity, event string, data any) (bool, error) {
	entry, ok, err := h.registry.Lookup(ctx, identity)
	if err != nil || !ok {
		return false, err
	}
	return h.emitToEntry(entry, event, data), nil
}

func (h *Hub) emitToEntry(entry storage.Entry, event string, data any) bool {
	b, ok := h.encode(event, data)
	if !ok {
		return false
	}
	if entry.NodeID == "" || entry.NodeID == h.opts.NodeID {
		c, ok := h.registry.LocalClient(entry.ConnID)
		if !ok {
			return false
		}
		return h.deliver(c, b)
	}
	h.publish(Envelope{Kind: TargetConn, Target: entry.ConnID, Frame: b})
	return true
}

func (h *Hub) deliverRoom(room string, b []byte, except string) int {
	if h.closing {
		return 0
	}
	n := 0
	for _, c := range h.rooms.Members(room) {
		if c.ID == except {
			continue
		}
		if h.deliver(c, b) {
			n++
		}
	}
	return n
}

func (h *Hub) deliverAll(b []byte, except string) int {
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.ID != except {
			targets = append(targets, c)
		}
	}
	n := 0
	for _, c := range targets {
		if h.deliver(c, b) {
			n++
		}
	}
	return n
}

// announce is the registry's StatusFunc: userStatus to everyone, or only to
// connections sharing a room with c when the scope is rooms.
func (h *Hub) announce(c *Client, identity, status string) {
	payload := UserStatus{UserID: identity, Status: status}
	if h.opts.PresenceScope != ScopeRooms {
		h.EmitAll(EventUserStatus, payload, nil)
		return
	}

	b, ok := h.encode(EventUserStatus, payload)
	if !ok {
		return
	}
	h.publish(Envelope{Kind: TargetRooms, Targets: h.rooms.RoomsOf(c), Frame: b})
	if h.closing {
		return
	}
	for _, p := range h.rooms.Peers(c) {
		h.deliver(p, b)
	}
}

func (h *Hub) publish(env Envelope) {
	if _, local := h.bus.(LocalBus); local {
		return
	}
	env.ID = ids.MessageID()
	ctx, cancel := contextWithStoreTimeout(h)
	defer cancel()
	if err := h.bus.Publish(ctx, env); err != nil {
		droppedTotal.WithLabelValues("bus_publish").Inc()
		logger.Warn("fan-out publish failed", zap.String("kind", env.Kind), zap.String("target", env.Target), zap.Error(err))
		return
	}
	busTotal.WithLabelValues("out").Inc()
}

// deliverRemote is called by the bus on its own goroutine.
func (h *Hub) deliverRemote(env Envelope) {
	h.Do(func() { h.deliverEnvelope(env) })
}

func (h *Hub) deliverEnvelope(env Envelope) {
	busTotal.WithLabelValues("in").Inc()
	b := []byte(env.Frame)
	switch env.Kind {
	case TargetAll:
		h.deliverAll(b, env.Except)
	case TargetRoom:
		h.deliverRoom(env.Target, b, env.Except)
	case TargetRooms:
		seen := make(map[*Client]struct{})
		for _, room := range env.Targets {
			for _, c := range h.rooms.Members(room) {
				if _, dup := seen[c]; dup || c.ID == env.Except {
					continue
				}
				seen[c] = struct{}{}
				h.deliver(c, b)
			}
		}
	case TargetConn:
		if c, ok := h.registry.LocalClient(env.Target); ok {
			h.deliver(c, b)
		}
	default:
		logger.Warn("unknown envelope kind", zap.String("kind", env.Kind), zap.String("origin", env.Origin))
	}
}
