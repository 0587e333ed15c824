package config

import "time"

const (
	PresenceMemory = "memory"
	PresenceRedis  = "redis"

	ScopeAll   = "all"
	ScopeRooms = "rooms"

	NotifierLocal = "local"
	NotifierKafka = "kafka"
)

type AppConfig struct {
	NodeID   string         `yaml:"node_id"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Log      LogConfig      `yaml:"log"`
	JWT      JWTConfig      `yaml:"jwt"`
	Chat     ChatConfig     `yaml:"chat"`
	Presence PresenceConfig `yaml:"presence"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Nats     NatsConfig     `yaml:"nats"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins for the websocket upgrade; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Issuer string        `yaml:"issuer"`
}

type ChatConfig struct {
	RequireToken   bool          `yaml:"require_token"`
	AuthTimeout    time.Duration `yaml:"auth_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	PresenceScope  string        `yaml:"presence_scope"`
	SendQueue      int           `yaml:"send_queue"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
}

type PresenceConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
	Prefix string        `yaml:"prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MongoConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Uri         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize int    `yaml:"max_pool_size"`
}

type NatsConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Servers  []string `yaml:"servers"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Subject  string   `yaml:"subject"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	GroupID           string   `yaml:"group_id"`
	NotificationTopic string   `yaml:"notification_topic"`
	AutoCreateTopics  bool     `yaml:"auto_create_topics"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// Notifier picks how REST side notifications reach sockets.
func (c *AppConfig) Notifier() string {
	if c.Kafka.Enabled {
		return NotifierKafka
	}
	return NotifierLocal
}
