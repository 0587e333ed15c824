// Package notify carries server-side domain events (application submitted,
// status changed) to a user's private channel on the gateway.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"SMProject/logger"
	"SMProject/service/kafka"
	"SMProject/tools/errs"

	"go.uber.org/zap"
)

// Event names pushed to clients.
const (
	EventApplicationSubmitted     = "applicationSubmitted"
	EventApplicationStatusUpdated = "applicationStatusUpdated"
)

// Notification is one event for one user.
type Notification struct {
	UserID    string          `json:"userId"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New encodes data into a Notification.
func New(userID, event string, data any) (Notification, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Notification{}, errs.WrapMsg(err, "encode notification", "event", event)
	}
	return Notification{UserID: userID, Event: event, Data: b, CreatedAt: time.Now()}, nil
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// UserSink delivers to the gateway; chat.Hub implements it.
type UserSink interface {
	NotifyUser(identity, event string, data any) bool
}

// Local hands notifications straight to the in-process gateway.
type Local struct {
	sink UserSink
}

func NewLocal(sink UserSink) *Local { return &Local{sink: sink} }

func (l *Local) Notify(_ context.Context, n Notification) error {
	if n.UserID == "" {
		return errs.ErrArgs.WrapMsg("notification without user")
	}
	if !l.sink.NotifyUser(n.UserID, n.Event, n.Data) {
		logger.Warn("notification dropped", zap.String("user", n.UserID), zap.String("event", n.Event))
	}
	return nil
}

// sender is the part of kafka.Producer Kafka needs.
type sender interface {
	SendJSON(topic, key string, v any) error
}

// Kafka publishes notifications to a topic keyed by recipient. The gateway
// nodes share one consumer group, so each notification is handled by a
// single node; Handler emits it on the user channel and the chat bus
// carries it to whichever node holds the connection.
type Kafka struct {
	p     sender
	topic string
}

func NewKafka(p *kafka.Producer, topic string) *Kafka {
	return &Kafka{p: p, topic: topic}
}

func (k *Kafka) Notify(_ context.Context, n Notification) error {
	if n.UserID == "" {
		return errs.ErrArgs.WrapMsg("notification without user")
	}
	if err := k.p.SendJSON(k.topic, n.UserID, n); err != nil {
		return errs.WrapMsg(err, "publish notification", "topic", k.topic, "user", n.UserID)
	}
	return nil
}

// Handler returns the kafka handler that decodes notifications and hands
// them to sink.
func Handler(sink UserSink) kafka.MessageHandler {
	return func(topic string, _, value []byte) error {
		var n Notification
		if err := json.Unmarshal(value, &n); err != nil {
			return errs.WrapMsg(err, "decode notification", "topic", topic)
		}
		if n.UserID == "" || n.Event == "" {
			return errs.ErrArgs.WrapMsg("notification missing userId or event", "topic", topic)
		}
		sink.NotifyUser(n.UserID, n.Event, n.Data)
		return nil
	}
}
