package chat

import (
	"context"
	"sync"

	"SMProject/logger"
	"SMProject/service/storage"
	"SMProject/tools/errs"

	"go.uber.org/zap"
)

// StatusFunc is told when an identity goes online or offline.
type StatusFunc func(c *Client, identity, status string)

// Registry maps identities to connections. The shared part lives in a
// PresenceStore; the local part indexes this node's live clients by id.
type Registry struct {
	store    storage.PresenceStore
	nodeID   string
	rooms    *Rooms
	onStatus StatusFunc

	mu    sync.RWMutex
	local map[string]*Client
}

func NewRegistry(store storage.PresenceStore, nodeID string, rooms *Rooms, onStatus StatusFunc) *Registry {
	if onStatus == nil {
		onStatus = func(*Client, string, string) {}
	}
	return &Registry{
		store:    store,
		nodeID:   nodeID,
		rooms:    rooms,
		onStatus: onStatus,
		local:    make(map[string]*Client),
	}
}

func (r *Registry) track(c *Client) {
	r.mu.Lock()
	r.local[c.ID] = c
	r.mu.Unlock()
}

func (r *Registry) untrack(c *Client) {
	r.mu.Lock()
	if r.local[c.ID] == c {
		delete(r.local, c.ID)
	}
	r.mu.Unlock()
}

// LocalClient finds a live connection of this node by handle.
func (r *Registry) LocalClient(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.local[connID]
	return c, ok
}

// LocalCount is the number of live connections on this node.
func (r *Registry) LocalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.local)
}

// Authenticate binds identity to c. The newest connection wins; an older
// connection for the same identity stays open but is no longer registered.
func (r *Registry) Authenticate(ctx context.Context, c *Client, identity string) error {
	if identity == "" {
		logger.Debug("authenticate without identity ignored", zap.String("conn", c.ID))
		return nil
	}

	// The previous identity is released only once the new one is stored, so
	// a failed Set leaves c exactly as it was.
	prev, replaced, err := r.store.Set(ctx, identity, storage.Entry{
		ConnID: c.ID,
		NodeID: r.nodeID,
		Since:  c.hub.now(),
	})
	if err != nil {
		return errs.WrapMsg(err, "register identity", "identity", identity)
	}
	if cur := c.Identity(); cur != "" && cur != identity {
		if _, err := r.releaseIdentity(ctx, c, cur); err != nil {
			logger.Warn("release previous identity", zap.String("conn", c.ID), zap.String("identity", cur), zap.Error(err))
		}
	}
	if replaced && prev.ConnID != c.ID {
		logger.Info("identity moved to a newer connection",
			zap.String("identity", identity),
			zap.String("from", prev.ConnID),
			zap.String("fromNode", prev.NodeID),
			zap.String("to", c.ID))
	}

	c.setIdentity(identity)
	r.rooms.Join(c, UserChannel(identity))
	r.onStatus(c, identity, StatusOnline)
	return nil
}

// Lookup returns the registered connection of identity.
func (r *Registry) Lookup(ctx context.Context, identity string) (storage.Entry, bool, error) {
	if identity == "" {
		return storage.Entry{}, false, nil
	}
	e, ok, err := r.store.Get(ctx, identity)
	if err != nil {
		return storage.Entry{}, false, errs.WrapMsg(err, "lookup identity", "identity", identity)
	}
	return e, ok, nil
}

// Release runs when c disconnects. The entry is removed only while it still
// points at c, and offline is announced only when it was.
func (r *Registry) Release(ctx context.Context, c *Client) (bool, error) {
	identity := c.Identity()
	if identity == "" {
		return false, nil
	}
	return r.releaseIdentity(ctx, c, identity)
}

func (r *Registry) releaseIdentity(ctx context.Context, c *Client, identity string) (bool, error) {
	removed, err := r.store.Delete(ctx, identity, c.ID)
	if err != nil {
		return false, errs.WrapMsg(err, "release identity", "identity", identity)
	}
	if removed {
		r.onStatus(c, identity, StatusOffline)
	}
	r.rooms.Leave(c, UserChannel(identity))
	return removed, nil
}

// Heartbeat refreshes the store TTL of every authenticated local client.
func (r *Registry) Heartbeat(ctx context.Context) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.local))
	for _, c := range r.local {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		id := c.Identity()
		if id == "" {
			continue
		}
		if _, err := r.store.Touch(ctx, id, c.ID); err != nil {
			logger.Warn("presence heartbeat failed", zap.String("identity", id), zap.Error(err))
		}
	}
}
