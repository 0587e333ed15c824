// Package mgo keeps a Mongo connection alive for the REST stores: it
// connects with backoff, then pings on an interval and reports health.
package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"SMProject/data/database/mgo/mongoutil"
	"SMProject/logger"
	"SMProject/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
	failThresh  = 3
)

type connectFunc func(ctx context.Context, cfg *mongoutil.Config) (*mongoutil.Client, error)

type Manager struct {
	cfg     *mongoutil.Config
	connect connectFunc

	mu        sync.RWMutex
	client    *mongoutil.Client
	readyCh   chan struct{}
	readyOnce sync.Once

	healthy  atomic.Bool
	lastErr  atomic.Value // error
	onHealth func(bool)
	done     chan struct{}
}

func NewManager(cfg *mongoutil.Config) *Manager {
	return &Manager{
		cfg:     cfg,
		connect: mongoutil.NewMongoDB,
		readyCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnHealth registers a callback run whenever health flips. Set it before
// StartAsync.
func (m *Manager) OnHealth(fn func(healthy bool)) { m.onHealth = fn }

// StartAsync runs until ctx ends. Ready closes on the first successful
// connect; later ping failures only flip health, the driver reconnects on
// its own.
func (m *Manager) StartAsync(ctx context.Context) {
	go func() {
		defer close(m.done)
		if !m.connectLoop(ctx) {
			return
		}
		m.healthLoop(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.client != nil {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.client.Disconnect(dctx); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
			m.client = nil
		}
	}()
}

func (m *Manager) connectLoop(ctx context.Context) bool {
	for attempt := 0; ; {
		cli, err := m.connect(ctx, m.cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.setHealthy(true)
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Info("mongo connected", zap.String("database", m.cfg.Database))
			return true
		}
		m.lastErr.Store(err)
		logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))

		backoff := min(baseBackoff<<attempt, maxBackoff)
		jitter := time.Duration(rand.Int63n(int64(backoff / 5)))
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

func (m *Manager) healthLoop(ctx context.Context) {
	t := time.NewTicker(healthEvery)
	defer t.Stop()
	fail := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		m.mu.RLock()
		c := m.client
		m.mu.RUnlock()

		pctx, cancel := context.WithTimeout(ctx, healthEvery/2)
		err := c.Ping(pctx)
		cancel()
		if err == nil {
			fail = 0
			m.setHealthy(true)
			continue
		}
		m.lastErr.Store(err)
		if fail++; fail >= failThresh {
			m.setHealthy(false)
		}
	}
}

func (m *Manager) setHealthy(ok bool) {
	if m.healthy.Swap(ok) == ok {
		return
	}
	if !ok {
		logger.Warn("mongo unhealthy", zap.Error(m.Err()))
	}
	if m.onHealth != nil {
		m.onHealth(ok)
	}
}

// Ready closes once the first connection succeeded.
func (m *Manager) Ready() <-chan struct{} { return m.readyCh }

// Done closes after StartAsync's goroutine disconnected.
func (m *Manager) Done() <-chan struct{} { return m.done }

func (m *Manager) Healthy() bool { return m.healthy.Load() }

// Err is the most recent connect or ping error.
func (m *Manager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *Manager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

// WaitReady blocks until the first connect or ctx ends.
func (m *Manager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-m.readyCh:
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return nil, errs.WrapMsg(err, "mongo not ready")
		}
		return nil, errs.WrapMsg(ctx.Err(), "mongo not ready")
	}
	db, ok := m.TryGetDB()
	if !ok {
		return nil, errs.New("mongo manager stopped")
	}
	return db, nil
}
