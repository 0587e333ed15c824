package global

import (
	"context"
	"hash/crc32"
	"time"

	"SMProject/data/database/mgo/mongoutil"
	"SMProject/global/config"
	"SMProject/logger"
	"SMProject/service/chat"
	"SMProject/service/kafka"
	mgoSrv "SMProject/service/mgo"
	"SMProject/service/natsx"
	"SMProject/service/notify"
	"SMProject/service/storage"
	"SMProject/service/storage/redis"
	"SMProject/tools/ids"
	"SMProject/tools/safe"
	"SMProject/tools/security"

	"go.uber.org/zap"
)

// ConfigIds derives the id generator's node from the configured node id.
func ConfigIds(cfg *config.AppConfig) {
	ids.SetNodeID(int64(crc32.ChecksumIEEE([]byte(cfg.NodeID)) % 1024))
}

func ConfigLog(cfg *config.AppConfig) {
	logger.SetLevel(cfg.Log.Level)
}

func JWTOptions(cfg *config.AppConfig) security.Options {
	opts := security.DefaultOptions([]byte(cfg.JWT.Secret))
	if cfg.JWT.TTL > 0 {
		opts.TTL = cfg.JWT.TTL
	}
	if cfg.JWT.Issuer != "" {
		opts.Issuer = cfg.JWT.Issuer
	}
	return opts
}

// ConfigPresence builds the presence store the driver names.
func ConfigPresence(ctx context.Context, cfg *config.AppConfig) (storage.PresenceStore, error) {
	if cfg.Presence.Driver != config.PresenceRedis {
		logger.Info("presence store: memory")
		return storage.NewMemoryStore(), nil
	}
	if err := ConfigRedis(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Info("presence store: redis", zap.String("addr", cfg.Redis.Addr))
	return storage.NewRedisStore(redis.GetRedis(), storage.RedisConfig{
		Prefix: cfg.Presence.Prefix,
		TTL:    cfg.Presence.TTL,
	}), nil
}

func ConfigRedis(ctx context.Context, cfg *config.AppConfig) error {
	return redis.InitRedis(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
}

// ConfigMgo starts the connection manager and waits up to wait for the
// first connect. onHealth may be nil.
func ConfigMgo(ctx context.Context, cfg *config.AppConfig, wait time.Duration, onHealth func(bool)) (*mgoSrv.Manager, error) {
	m := mgoSrv.NewManager(&mongoutil.Config{
		Uri:         cfg.Mongo.Uri,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    1,
	})
	if onHealth != nil {
		m.OnHealth(onHealth)
	}
	m.StartAsync(ctx)

	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if _, err := m.WaitReady(wctx); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfigNats returns the cross-node bus, or nil when NATS is disabled.
func ConfigNats(cfg *config.AppConfig) (*natsx.Manager, chat.Bus, error) {
	if !cfg.Nats.Enabled {
		return nil, nil, nil
	}
	m, err := natsx.NewManager(natsx.Config{
		Servers:  cfg.Nats.Servers,
		Name:     cfg.NodeID,
		User:     cfg.Nats.User,
		Password: cfg.Nats.Password,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("nats connected", zap.Strings("servers", cfg.Nats.Servers))
	return m, chat.NewNatsBus(m, cfg.Nats.Subject, cfg.NodeID), nil
}

func ChatOptions(cfg *config.AppConfig) chat.Options {
	o := chat.DefaultOptions()
	o.NodeID = cfg.NodeID
	o.RequireToken = cfg.Chat.RequireToken
	o.AuthTimeout = cfg.Chat.AuthTimeout
	o.SweepInterval = cfg.Chat.SweepInterval
	o.PresenceScope = cfg.Chat.PresenceScope
	o.SendQueue = cfg.Chat.SendQueue
	o.MaxMessageSize = cfg.Chat.MaxMessageSize
	o.WriteWait = cfg.Chat.WriteWait
	o.PongWait = cfg.Chat.PongWait
	o.RateLimit = cfg.Chat.RateLimit
	o.RateBurst = cfg.Chat.RateBurst
	return o
}

func kafkaConfig(cfg *config.AppConfig) kafka.Config {
	kc := kafka.DefaultConfig()
	kc.Brokers = cfg.Kafka.Brokers
	kc.GroupID = cfg.Kafka.GroupID
	kc.ClientID = cfg.NodeID
	kc.AutoCreateTopics = cfg.Kafka.AutoCreateTopics
	kc.Partitions = cfg.Kafka.Partitions
	kc.ReplicationFactor = cfg.Kafka.ReplicationFactor
	return kc
}

// ConfigNotifier wires REST notifications to sockets. With Kafka enabled
// it also starts the consumer group that feeds sink; the returned func
// closes the producer.
func ConfigNotifier(ctx context.Context, cfg *config.AppConfig, sink notify.UserSink) (notify.Notifier, func(), error) {
	if cfg.Notifier() != config.NotifierKafka {
		return notify.NewLocal(sink), func() {}, nil
	}
	kc := kafkaConfig(cfg)
	topic := cfg.Kafka.NotificationTopic
	if kc.AutoCreateTopics {
		if err := kafka.EnsureTopicsOnBrokers([]string{topic}, kc); err != nil {
			return nil, nil, err
		}
	}
	client, err := kafka.NewClient(kc)
	if err != nil {
		return nil, nil, err
	}
	producer, err := kafka.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	r := kafka.NewRouter()
	r.RegisterHandler(topic, notify.Handler(sink))
	safe.Go("kafka-notify-consumer", func() {
		if err := kafka.StartConsumerGroup(ctx, kc, r); err != nil {
			logger.Error("notification consumer stopped", zap.Error(err))
		}
	})
	logger.Info("notifier: kafka", zap.String("topic", topic), zap.Strings("brokers", kc.Brokers))

	closer := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close kafka producer", zap.Error(err))
		}
		if err := client.Close(); err != nil {
			logger.Warn("close kafka client", zap.Error(err))
		}
	}
	return notify.NewKafka(producer, topic), closer, nil
}
