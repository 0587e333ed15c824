package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"SMProject/service/storage"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type recordingBus struct {
	mu   sync.Mutex
	envs []Envelope
}

func (b *recordingBus) Start(context.Context, func(Envelope)) error { return nil }
func (b *recordingBus) Close() error                                { return nil }

func (b *recordingBus) Publish(_ context.Context, env Envelope) error {
	b.mu.Lock()
	b.envs = append(b.envs, env)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) sent() []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Envelope(nil), b.envs...)
}

func newTestHub(t *testing.T, store storage.PresenceStore, mutate func(*Options), hopts ...HubOption) *Hub {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	opts := DefaultOptions()
	opts.RateLimit = 0
	if mutate != nil {
		mutate(&opts)
	}
	return NewHub(store, opts, hopts...)
}

// attach registers a socketless client the way Serve would.
func attach(h *Hub, id string) *Client {
	c := newClient(id, h, nil)
	h.addClient(c)
	return c
}

type received struct {
	Event string
	Data  json.RawMessage
}

// drain empties c's send queue.
func drain(t *testing.T, c *Client) []received {
	t.Helper()
	var out []received
	for {
		select {
		case b := <-c.send:
			ev, data, err := DecodeOutFrame(b)
			require.NoError(t, err)
			out = append(out, received{Event: ev, Data: data})
		default:
			return out
		}
	}
}

func events(rs []received) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Event)
	}
	return out
}
