package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/golang/glog"
)

// Producer sends keyed messages synchronously.
type Producer struct {
	sp sarama.SyncProducer
}

func NewProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{sp: sp}
}

func NewSyncProducerFromClient(client sarama.Client) (*Producer, error) {
	sp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}
	return NewProducer(sp), nil
}

// SendSync blocks until the broker acknowledged the message.
func (p *Producer) SendSync(topic, key string, value []byte) (int32, int64, error) {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		glog.Warningf("[kafka] send topic=%s key=%s failed: %v", topic, key, err)
		return 0, 0, err
	}
	glog.V(2).Infof("[kafka] sent topic=%s key=%s partition=%d offset=%d", topic, key, partition, offset)
	return partition, offset, nil
}

// SendJSON marshals v and sends it.
func (p *Producer) SendJSON(topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	_, _, err = p.SendSync(topic, key, b)
	return err
}

func (p *Producer) Close() error {
	return p.sp.Close()
}
