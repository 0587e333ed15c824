package chat

import (
	"context"

	"SMProject/logger"
	"SMProject/tools/errs"

	"go.uber.org/zap"
)

// Context is what a handler sees for one inbound frame. It runs on the hub
// goroutine, so handlers must not block on other clients.
type Context struct {
	context.Context
	Hub    *Hub
	Client *Client
	Frame  *InFrame
}

type Handler interface {
	Event() string
	// Handle returns the ack status on success.
	Handle(ctx *Context) (string, error)
}

// AuthRequired is implemented by handlers that refuse anonymous connections.
type AuthRequired interface {
	RequiresAuth() bool
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(hs ...Handler) {
	for _, h := range hs {
		d.handlers[h.Event()] = h
	}
}

func (d *Dispatcher) Handler(event string) (Handler, bool) {
	h, ok := d.handlers[event]
	return h, ok
}

// Dispatch runs the handler for ctx.Frame and reports the outcome as an Ack.
func (d *Dispatcher) Dispatch(ctx *Context) Ack {
	f := ctx.Frame
	status, err := d.run(ctx)
	if err != nil {
		ack := rejectedAck(f, err)
		if ack.Code == errs.ServerInternalError {
			logger.Error("event failed", zap.String("event", f.Event), zap.String("conn", ctx.Client.ID), zap.Error(err))
		} else {
			logger.Debug("event rejected", zap.String("event", f.Event), zap.String("conn", ctx.Client.ID), zap.Error(err))
		}
		eventsTotal.WithLabelValues(metricEvent(d, f.Event), AckRejected).Inc()
		return ack
	}
	eventsTotal.WithLabelValues(f.Event, status).Inc()
	return Ack{AckID: f.AckID, Event: f.Event, Status: status}
}

func (d *Dispatcher) run(ctx *Context) (string, error) {
	h, ok := d.handlers[ctx.Frame.Event]
	if !ok {
		return "", errs.ErrUnknownEvent.WrapMsg("unknown event", "event", ctx.Frame.Event)
	}
	if g, ok := h.(AuthRequired); ok && g.RequiresAuth() && ctx.Client.Identity() == "" {
		return "", errs.ErrUnauthenticated.WrapMsg("authenticate first", "event", ctx.Frame.Event)
	}
	status, err := h.Handle(ctx)
	if err != nil {
		return "", err
	}
	if status == "" {
		status = AckOK
	}
	return status, nil
}

// metricEvent keeps label cardinality bounded for unknown events.
func metricEvent(d *Dispatcher, event string) string {
	if _, ok := d.handlers[event]; ok {
		return event
	}
	return "unknown"
}

func rejectedAck(f *InFrame, err error) Ack {
	ack := Ack{AckID: f.AckID, Event: f.Event, Status: AckRejected, Code: errs.Code(err)}
	if ce, ok := errs.As(err); ok {
		ack.Reason = ce.Msg
		if ce.Detail != "" {
			ack.Reason = ce.Detail
		}
	} else {
		ack.Reason = "internal error"
	}
	return ack
}
