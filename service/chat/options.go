package chat

import "time"

const (
	ScopeAll   = "all"
	ScopeRooms = "rooms"
)

// Options tunes the hub and every client it serves.
type Options struct {
	NodeID string

	SendQueue      int
	InboundQueue   int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration

	// RateLimit is events per second per connection; 0 disables limiting.
	RateLimit float64
	RateBurst int

	RequireToken bool
	// AuthTimeout closes connections that never authenticate; 0 disables it.
	AuthTimeout       time.Duration
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	EventTimeout      time.Duration

	// PresenceScope is ScopeAll or ScopeRooms.
	PresenceScope string

	Clock func() time.Time
}

func DefaultOptions() Options {
	return Options{
		NodeID:            "smc-1",
		SendQueue:         256,
		InboundQueue:      1024,
		MaxMessageSize:    64 * 1024,
		WriteWait:         10 * time.Second,
		PongWait:          60 * time.Second,
		RateLimit:         20,
		RateBurst:         40,
		RequireToken:      true,
		AuthTimeout:       30 * time.Second,
		SweepInterval:     5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		EventTimeout:      5 * time.Second,
		PresenceScope:     ScopeAll,
	}
}

// PingPeriod must stay below PongWait.
func (o Options) PingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

func (o *Options) norm() {
	d := DefaultOptions()
	if o.NodeID == "" {
		o.NodeID = d.NodeID
	}
	if o.SendQueue <= 0 {
		o.SendQueue = d.SendQueue
	}
	if o.InboundQueue <= 0 {
		o.InboundQueue = d.InboundQueue
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.RateLimit > 0 && o.RateBurst <= 0 {
		o.RateBurst = int(o.RateLimit) + 1
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = d.SweepInterval
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.EventTimeout <= 0 {
		o.EventTimeout = d.EventTimeout
	}
	if o.PresenceScope != ScopeRooms {
		o.PresenceScope = ScopeAll
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}
