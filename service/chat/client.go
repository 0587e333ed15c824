package chat

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"SMProject/logger"
	"SMProject/tools/errs"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is one websocket connection. Its ID is the connection handle the
// registry stores.
type Client struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	kick    chan kickFrame
	done    chan struct{}
	limiter *rate.Limiter

	identity  atomic.Value // string
	closeOnce sync.Once

	// owned by the hub goroutine
	removed bool
}

func newClient(id string, h *Hub, conn *websocket.Conn) *Client {
	opts := h.opts
	c := &Client{
		ID:          id,
		ConnectedAt: h.now(),
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, opts.SendQueue),
		kick:        make(chan kickFrame, 1),
		done:        make(chan struct{}),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	c.identity.Store("")
	return c
}

// Identity is the authenticated user id, empty before authenticate.
func (c *Client) Identity() string {
	return c.identity.Load().(string)
}

func (c *Client) setIdentity(id string) {
	c.identity.Store(id)
}

// Done is closed once the connection is shut.
func (c *Client) Done() <-chan struct{} { return c.done }

// trySend queues a frame without blocking. False means the queue is full
// or the connection is gone.
func (c *Client) trySend(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

type kickFrame struct {
	payload []byte
	reason  string
}

// closeWith delivers a last frame, then a policy-violation close frame.
func (c *Client) closeWith(b []byte, reason string) {
	select {
	case c.kick <- kickFrame{payload: b, reason: reason}:
	default:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.close()
	}()

	pongWait := c.hub.opts.PongWait
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		f, err := ParseFrame(raw)
		if err != nil {
			logger.Debug("drop unparsable frame", zap.String("conn", c.ID), zap.Error(err))
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.rejectLocal(f, errs.ErrRateLimited.WrapMsg("too many events"))
			continue
		}
		if !c.hub.submit(c, f) {
			return
		}
	}
}

// rejectLocal answers from the reader goroutine; the hub never sees the frame.
func (c *Client) rejectLocal(f *InFrame, err error) {
	eventsTotal.WithLabelValues(metricEvent(c.hub.dispatcher, f.Event), AckRejected).Inc()
	if f.AckID == "" {
		return
	}
	b, encErr := EncodeFrame(EventAck, rejectedAck(f, err))
	if encErr != nil {
		return
	}
	_ = c.trySend(b)
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warn("frame exceeds max size", zap.String("conn", c.ID), zap.Int64("limit", c.hub.opts.MaxMessageSize))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		logger.Debug("peer closed", zap.String("conn", c.ID))
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		logger.Debug("connection closed", zap.String("conn", c.ID))
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			logger.Info("read timeout", zap.String("conn", c.ID))
			return
		}
		logger.Info("read error", zap.String("conn", c.ID), zap.Error(err))
	}
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			if err := c.write(websocket.TextMessage, b); err != nil {
				logger.Debug("write failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case k := <-c.kick:
			if len(k.payload) > 0 {
				_ = c.write(websocket.TextMessage, k.payload)
			}
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, k.reason))
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(mt int, b []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(mt, b)
}
