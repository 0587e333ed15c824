package natsx

import (
	"context"
	"fmt"

	"SMProject/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Consumer struct {
	c   *Client
	mws []Middleware
}

func NewConsumer(c *Client, mws ...Middleware) *Consumer {
	return &Consumer{c: c, mws: mws}
}

// Subscribe attaches h to the route for biz. A route with a Queue is load
// balanced across the group; without one every subscriber gets every message.
func (cs *Consumer) Subscribe(biz string, h Handler) error {
	r, ok := cs.c.route(biz)
	if !ok {
		return fmt.Errorf("route not found: %s", biz)
	}
	h = Chain(h, cs.mws...)

	cb := func(m *nats.Msg) {
		msg := Message{
			Subject: m.Subject,
			Data:    append([]byte(nil), m.Data...),
			Header:  headerToMap(m.Header),
		}
		if err := h(context.Background(), msg); err != nil {
			logger.Warn("nats handler failed", zap.String("subject", m.Subject), zap.Error(err))
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if r.Queue == "" {
		sub, err = cs.c.nc.Subscribe(r.Subject, cb)
	} else {
		sub, err = cs.c.nc.QueueSubscribe(r.Subject, r.Queue, cb)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Subject, err)
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)

	cs.c.mu.Lock()
	if old, ok := cs.c.subs[biz]; ok {
		_ = old.Unsubscribe()
	}
	cs.c.subs[biz] = sub
	cs.c.mu.Unlock()
	return nil
}
