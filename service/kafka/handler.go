package kafka

import (
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
)

type MessageHandler func(topic string, key, value []byte) error

// Router maps topics to handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]MessageHandler)}
}

func (r *Router) RegisterHandler(topic string, h MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = h
}

func (r *Router) GetHandler(topic string) (MessageHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[topic]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("no handler registered for topic: %s", topic)
}

// Topics lists every topic with a handler.
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Handle runs the handler for msg's topic.
func (r *Router) Handle(msg *sarama.ConsumerMessage) error {
	h, err := r.GetHandler(msg.Topic)
	if err != nil {
		return err
	}
	return h(msg.Topic, msg.Key, msg.Value)
}
