package chat

import (
	"context"
	"sync"
	"time"

	"SMProject/logger"
	"SMProject/service/storage"
	"SMProject/tools/errs"
	"SMProject/tools/ids"
	"SMProject/tools/safe"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const storeTimeout = 3 * time.Second

// TokenVerifier turns a bearer token into the user id it was issued to.
type TokenVerifier func(token string) (string, error)

type inboundFrame struct {
	c *Client
	f *InFrame
}

// Hub owns every connection of this node. All inbound events, joins,
// leaves and disconnects are applied by the single goroutine in Run, which
// is what gives each room a total emission order.
type Hub struct {
	opts       Options
	rooms      *Rooms
	registry   *Registry
	dispatcher *Dispatcher
	bus        Bus
	verifier   TokenVerifier

	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	tasks      chan func()

	runCtx   context.Context
	clients  map[*Client]struct{}
	closing  bool
	lastBeat time.Time
	done     chan struct{}
	wg       sync.WaitGroup
}

type HubOption func(*Hub)

func WithBus(b Bus) HubOption {
	return func(h *Hub) { h.bus = b }
}

func WithVerifier(v TokenVerifier) HubOption {
	return func(h *Hub) { h.verifier = v }
}

func WithDispatcher(d *Dispatcher) HubOption {
	return func(h *Hub) { h.dispatcher = d }
}

func NewHub(store storage.PresenceStore, opts Options, hopts ...HubOption) *Hub {
	opts.norm()
	h := &Hub{
		opts:       opts,
		rooms:      NewRooms(),
		bus:        LocalBus{},
		dispatcher: NewDispatcher(),
		inbound:    make(chan inboundFrame, opts.InboundQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		tasks:      make(chan func(), 256),
		runCtx:     context.Background(),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
	}
	h.registry = NewRegistry(store, opts.NodeID, h.rooms, h.announce)
	for _, o := range hopts {
		o(h)
	}
	return h
}

func (h *Hub) Options() Options            { return h.opts }
func (h *Hub) Rooms() *Rooms               { return h.rooms }
func (h *Hub) Registry() *Registry         { return h.registry }
func (h *Hub) Dispatcher() *Dispatcher     { return h.dispatcher }
func (h *Hub) Done() <-chan struct{}       { return h.done }
func (h *Hub) now() time.Time              { return h.opts.Clock() }
func (h *Hub) RequireToken() bool          { return h.opts.RequireToken }
func (h *Hub) SetVerifier(v TokenVerifier) { h.verifier = v }

// VerifyToken checks a token issued by the REST auth layer.
func (h *Hub) VerifyToken(token string) (string, error) {
	if h.verifier == nil {
		return "", errs.ErrTokenInvalid.WrapMsg("no token verifier configured")
	}
	return h.verifier(token)
}

// Run processes events until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	h.runCtx = ctx
	if err := h.bus.Start(ctx, h.deliverRemote); err != nil {
		return errs.WrapMsg(err, "start fan-out bus")
	}

	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()
	h.lastBeat = h.now()

	logger.Info("hub running", zap.String("node", h.opts.NodeID), zap.String("presenceScope", h.opts.PresenceScope))
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case in := <-h.inbound:
			h.handle(in)
		case fn := <-h.tasks:
			fn()
		case <-ticker.C:
			h.sweep()
		}
	}
}

// Wait blocks until Run has returned and every pump has exited.
func (h *Hub) Wait() {
	<-h.done
	h.wg.Wait()
}

// Serve takes over an upgraded websocket.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := newClient(ids.ConnID(), h, conn)
	h.wg.Add(2)
	select {
	case h.register <- c:
	case <-h.done:
		h.wg.Add(-2)
		_ = conn.Close()
		return
	}
	go func() {
		defer h.wg.Done()
		defer safe.Recover("writePump")
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		defer safe.Recover("readPump")
		c.readPump()
	}()
}

// Do runs fn on the hub goroutine. False when the hub has stopped or its
// task queue is full.
func (h *Hub) Do(fn func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.tasks <- fn:
		return true
	case <-h.done:
		return false
	default:
		droppedTotal.WithLabelValues("task_queue_full").Inc()
		return false
	}
}

// NotifyUser sends event to every connection in identity's private channel.
// Safe from any goroutine.
func (h *Hub) NotifyUser(identity, event string, data any) bool {
	if identity == "" {
		return false
	}
	return h.Do(func() {
		h.EmitRoom(UserChannel(identity), event, data, nil)
	})
}

func (h *Hub) submit(c *Client, f *InFrame) bool {
	select {
	case h.inbound <- inboundFrame{c: c, f: f}:
		return true
	case <-c.done:
		return false
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = struct{}{}
	h.registry.track(c)
	connectionsOpen.Inc()
	logger.Debug("connection opened", zap.String("conn", c.ID), zap.String("remote", c.RemoteAddr))
}

func (h *Hub) removeClient(c *Client) {
	if c.removed {
		return
	}
	c.removed = true
	delete(h.clients, c)

	ctx, cancel := context.WithTimeout(h.runCtx, storeTimeout)
	if _, err := h.registry.Release(ctx, c); err != nil {
		logger.Warn("release failed", zap.String("conn", c.ID), zap.String("identity", c.Identity()), zap.Error(err))
	}
	cancel()
	h.rooms.LeaveAll(c)
	h.registry.untrack(c)
	c.close()
	connectionsOpen.Dec()
	logger.Debug("connection closed", zap.String("conn", c.ID), zap.String("identity", c.Identity()))
}

func contextWithStoreTimeout(h *Hub) (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.runCtx, storeTimeout)
}

func (h *Hub) evict(c *Client, reason string) {
	droppedTotal.WithLabelValues(reason).Inc()
	logger.Warn("evicting connection", zap.String("conn", c.ID), zap.String("identity", c.Identity()), zap.String("reason", reason))
	h.removeClient(c)
}

func (h *Hub) handle(in inboundFrame) {
	if in.c.removed {
		return
	}
	ctx, cancel := context.WithTimeout(h.runCtx, h.opts.EventTimeout)
	defer cancel()

	ack := h.dispatcher.Dispatch(&Context{Context: ctx, Hub: h, Client: in.c, Frame: in.f})
	if in.f.AckID != "" && !in.c.removed {
		h.EmitTo(in.c, EventAck, ack)
	}
}

func (h *Hub) sweep() {
	now := h.now()
	authed := 0
	for c := range h.clients {
		if c.Identity() != "" {
			authed++
			continue
		}
		if h.opts.AuthTimeout > 0 && now.Sub(c.ConnectedAt) >= h.opts.AuthTimeout {
			b, err := EncodeFrame(EventError, ErrorEvent{Code: errs.AuthTimeoutError, Message: "authentication timeout"})
			if err == nil {
				logger.Info("closing unauthenticated connection", zap.String("conn", c.ID), zap.Duration("age", now.Sub(c.ConnectedAt)))
				c.closeWith(b, "authentication timeout")
			}
		}
	}
	identitiesOnline.Set(float64(authed))

	if now.Sub(h.lastBeat) >= h.opts.HeartbeatInterval {
		h.lastBeat = now
		ctx, cancel := context.WithTimeout(h.runCtx, storeTimeout)
		h.registry.Heartbeat(ctx)
		cancel()
	}
}

func (h *Hub) shutdown() {
	h.closing = true
	logger.Info("hub shutting down", zap.Int("connections", len(h.clients)))

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	h.runCtx = ctx
	for c := range h.clients {
		h.removeClient(c)
	}
	if err := h.bus.Close(); err != nil {
		logger.Warn("close fan-out bus", zap.Error(err))
	}
}
