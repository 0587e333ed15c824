package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"SMProject/tools"

	"gopkg.in/yaml.v3"
)

const EnvConfigFile = "SMC_CONFIG"

// Global holds the active configuration. main replaces it through Load.
var Global = Default()

// Default returns the in-code defaults.
func Default() AppConfig {
	return AppConfig{
		NodeID: "smc-1",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		GRPC: GRPCConfig{Addr: ":50051"},
		Log:  LogConfig{Level: "info"},
		JWT: JWTConfig{
			TTL:    30 * 24 * time.Hour,
			Issuer: "smc",
		},
		Chat: ChatConfig{
			RequireToken:   true,
			AuthTimeout:    30 * time.Second,
			SweepInterval:  5 * time.Second,
			PresenceScope:  ScopeAll,
			SendQueue:      256,
			MaxMessageSize: 64 * 1024,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			RateLimit:      20,
			RateBurst:      40,
		},
		Presence: PresenceConfig{
			Driver: PresenceMemory,
			TTL:    90 * time.Second,
			Prefix: "smc:presence:",
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379", PoolSize: 20},
		Mongo: MongoConfig{
			Enabled:     true,
			Uri:         "mongodb://localhost:27017",
			Database:    "smc",
			MaxPoolSize: 20,
		},
		Nats: NatsConfig{
			Servers: []string{"nats://127.0.0.1:4222"},
			Subject: "smc.fanout",
		},
		Kafka: KafkaConfig{
			Brokers:           []string{"127.0.0.1:9092"},
			GroupID:           "smc-notify",
			NotificationTopic: "smc.notifications",
			Partitions:        3,
			ReplicationFactor: 1,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SMC_CONFIG (if any), then environment overrides.
func Load() (AppConfig, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays a YAML file on cfg. Keys missing from the file keep
// their current values.
func LoadFile(path string, cfg *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func ApplyEnv(cfg *AppConfig) {
	cfg.NodeID = tools.GetEnv("SMC_NODE_ID", cfg.NodeID)
	cfg.HTTP.Addr = tools.GetEnv("SMC_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = tools.GetEnvList("SMC_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.GRPC.Addr = tools.GetEnv("SMC_GRPC_ADDR", cfg.GRPC.Addr)
	cfg.Log.Level = tools.GetEnv("SMC_LOG_LEVEL", cfg.Log.Level)

	cfg.JWT.Secret = tools.GetEnv("SMC_JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.TTL = tools.GetEnvDuration("SMC_JWT_TTL", cfg.JWT.TTL)

	cfg.Chat.RequireToken = tools.GetEnvBool("SMC_REQUIRE_TOKEN", cfg.Chat.RequireToken)
	cfg.Chat.AuthTimeout = tools.GetEnvDuration("SMC_AUTH_TIMEOUT", cfg.Chat.AuthTimeout)
	cfg.Chat.PresenceScope = tools.GetEnv("SMC_PRESENCE_SCOPE", cfg.Chat.PresenceScope)
	cfg.Chat.SendQueue = tools.GetEnvInt("SMC_SEND_QUEUE", cfg.Chat.SendQueue)

	cfg.Presence.Driver = tools.GetEnv("SMC_PRESENCE_DRIVER", cfg.Presence.Driver)

	cfg.Redis.Addr = tools.GetEnv("SMC_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = tools.GetEnv("SMC_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = tools.GetEnvInt("SMC_REDIS_DB", cfg.Redis.DB)

	cfg.Mongo.Enabled = tools.GetEnvBool("SMC_MONGO_ENABLED", cfg.Mongo.Enabled)
	cfg.Mongo.Uri = tools.GetEnv("SMC_MONGO_URI", cfg.Mongo.Uri)
	cfg.Mongo.Database = tools.GetEnv("SMC_MONGO_DATABASE", cfg.Mongo.Database)

	cfg.Nats.Enabled = tools.GetEnvBool("SMC_NATS_ENABLED", cfg.Nats.Enabled)
	cfg.Nats.Servers = tools.GetEnvList("SMC_NATS_URL", cfg.Nats.Servers)

	cfg.Kafka.Enabled = tools.GetEnvBool("SMC_KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Brokers = tools.GetEnvList("SMC_KAFKA_BROKERS", cfg.Kafka.Brokers)
}

func (c *AppConfig) Validate() error {
	var problems []string
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required (SMC_JWT_SECRET)")
	}
	switch c.Chat.PresenceScope {
	case ScopeAll, ScopeRooms:
	default:
		problems = append(problems, fmt.Sprintf("chat.presence_scope must be %q or %q", ScopeAll, ScopeRooms))
	}
	switch c.Presence.Driver {
	case PresenceMemory, PresenceRedis:
	default:
		problems = append(problems, fmt.Sprintf("presence.driver must be %q or %q", PresenceMemory, PresenceRedis))
	}
	if c.Chat.SendQueue <= 0 {
		problems = append(problems, "chat.send_queue must be positive")
	}
	if c.Nats.Enabled && c.Presence.Driver != PresenceRedis {
		problems = append(problems, "nats fan-out needs presence.driver=redis")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
