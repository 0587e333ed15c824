package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	mu       sync.RWMutex
	redisMgr *RedisManager
)

type RedisManager struct {
	client *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewClient dials and pings; the caller owns the returned client.
func NewClient(ctx context.Context, c Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// InitRedis installs the process wide client. Calling it again replaces it.
func InitRedis(ctx context.Context, c Config) error {
	rdb, err := NewClient(ctx, c)
	if err != nil {
		return err
	}
	mu.Lock()
	old := redisMgr
	redisMgr = &RedisManager{client: rdb}
	mu.Unlock()
	if old != nil {
		_ = old.client.Close()
	}
	return nil
}

// GetRedis returns the process wide client.
func GetRedis() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	if redisMgr == nil {
		panic("Redis not initialized, call InitRedis first")
	}
	return redisMgr.client
}

func TryGetRedis() (*redis.Client, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if redisMgr == nil {
		return nil, false
	}
	return redisMgr.client, true
}

func CloseRedis() error {
	mu.Lock()
	defer mu.Unlock()
	if redisMgr == nil {
		return errors.New("redis not initialized")
	}
	err := redisMgr.client.Close()
	redisMgr = nil
	return err
}
