package natsx

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

type Producer struct{ c *Client }

func NewProducer(c *Client) *Producer { return &Producer{c: c} }

// Publish sends data on the subject registered for biz.
func (p *Producer) Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := p.c.route(biz)
	if !ok {
		return fmt.Errorf("route not found: %s", biz)
	}
	msg := nats.NewMsg(r.Subject)
	msg.Data = data
	if h := toHeader(hdr); h != nil {
		msg.Header = h
	}
	if err := p.c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", r.Subject, err)
	}
	return nil
}
