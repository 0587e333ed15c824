package natsx

import (
	"context"
	"sync"
	"time"
)

const (
	HeaderMsgID  = "Smc-Msg-Id"
	HeaderOrigin = "Smc-Node"
)

// SeenStore remembers message ids for a while.
type SeenStore interface {
	SeenOnce(key string, ttl time.Duration) bool
}

type memSeen struct {
	mu  sync.Mutex
	m   map[string]time.Time
	ttl time.Duration
	now func() time.Time
}

// NewMemSeen returns an in-process SeenStore. The janitor stops with ctx.
func NewMemSeen(ctx context.Context, defaultTTL time.Duration) SeenStore {
	ms := &memSeen{m: make(map[string]time.Time), ttl: defaultTTL, now: time.Now}
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				ms.sweep()
			}
		}
	}()
	return ms
}

func (ms *memSeen) sweep() {
	now := ms.now()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for k, exp := range ms.m {
		if !exp.After(now) {
			delete(ms.m, k)
		}
	}
}

func (ms *memSeen) SeenOnce(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = ms.ttl
	}
	now := ms.now()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if exp, ok := ms.m[key]; ok && exp.After(now) {
		return true
	}
	ms.m[key] = now.Add(ttl)
	return false
}

// Dedupe drops messages whose HeaderMsgID was already handled. Messages
// without an id pass through.
func Dedupe(store SeenStore, ttl time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			id := msg.Header[HeaderMsgID]
			if id != "" && store.SeenOnce(id, ttl) {
				return nil
			}
			return next(ctx, msg)
		}
	}
}

// SkipOrigin drops messages this node published itself.
func SkipOrigin(nodeID string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			if msg.Header[HeaderOrigin] == nodeID {
				return nil
			}
			return next(ctx, msg)
		}
	}
}
