package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SMProject/logger"
	"SMProject/service/natsx"

	"go.uber.org/zap"
)

const natsBiz = "chat.fanout"

// natsConn is the part of natsx.Manager the bus needs.
type natsConn interface {
	RegisterRoute(r natsx.Route) error
	Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error
	Subscribe(biz string, h natsx.Handler) error
	Close() error
}

// NatsBus broadcasts envelopes on one subject. Every node subscribes
// without a queue group, so each sees every envelope; its own are skipped.
type NatsBus struct {
	nc      natsConn
	subject string
	nodeID  string
	dedupe  time.Duration
}

func NewNatsBus(nc natsConn, subject, nodeID string) *NatsBus {
	return &NatsBus{nc: nc, subject: subject, nodeID: nodeID, dedupe: 2 * time.Minute}
}

func (b *NatsBus) Start(ctx context.Context, deliver func(Envelope)) error {
	if err := b.nc.RegisterRoute(natsx.Route{Biz: natsBiz, Subject: b.subject}); err != nil {
		return fmt.Errorf("register fan-out route: %w", err)
	}
	h := natsx.Chain(func(_ context.Context, msg natsx.Message) error {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		deliver(env)
		return nil
	}, natsx.SkipOrigin(b.nodeID), natsx.Dedupe(natsx.NewMemSeen(ctx, b.dedupe), b.dedupe))

	if err := b.nc.Subscribe(natsBiz, h); err != nil {
		return fmt.Errorf("subscribe fan-out: %w", err)
	}
	logger.Info("nats fan-out bus started", zap.String("subject", b.subject), zap.String("node", b.nodeID))
	return nil
}

func (b *NatsBus) Publish(ctx context.Context, env Envelope) error {
	env.Origin = b.nodeID
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return b.nc.Publish(ctx, natsBiz, data, map[string]string{
		natsx.HeaderMsgID:  env.ID,
		natsx.HeaderOrigin: b.nodeID,
	})
}

func (b *NatsBus) Close() error {
	return b.nc.Close()
}
