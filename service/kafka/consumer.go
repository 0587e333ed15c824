package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/golang/glog"
)

type ConsumerGroupHandler struct {
	router *Router
}

func NewConsumerGroupHandler(r *Router) *ConsumerGroupHandler {
	return &ConsumerGroupHandler{router: r}
}

func (h *ConsumerGroupHandler) Setup(s sarama.ConsumerGroupSession) error {
	glog.Infof("[kafka] consumer group setup member=%s claims=%v", s.MemberID(), s.Claims())
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	glog.Info("[kafka] consumer group cleanup")
	return nil
}

// ConsumeClaim marks every message, including ones whose handler failed:
// notifications are best effort and a poison message must not stall the
// partition.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.router.Handle(msg); err != nil {
				glog.Warningf("[kafka] handle topic=%s partition=%d offset=%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// StartConsumerGroup consumes the router's topics until ctx ends.
func StartConsumerGroup(ctx context.Context, c Config, r *Router) error {
	group, err := sarama.NewConsumerGroup(c.Brokers, c.GroupID, BuildBaseConfig(c))
	if err != nil {
		return fmt.Errorf("new consumer group %s: %w", c.GroupID, err)
	}
	defer func() {
		if err := group.Close(); err != nil {
			glog.Warningf("[kafka] close consumer group: %v", err)
		}
	}()

	go func() {
		for err := range group.Errors() {
			glog.Warningf("[kafka] consumer group error: %v", err)
		}
	}()

	topics := r.Topics()
	handler := NewConsumerGroupHandler(r)
	glog.Infof("[kafka] consuming group=%s topics=%v", c.GroupID, topics)
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			glog.Warningf("[kafka] consume: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
