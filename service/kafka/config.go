package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

type Config struct {
	Brokers               []string
	GroupID               string
	ClientID              string
	Version               sarama.KafkaVersion
	ProducerRetries       int
	ProducerCompression   string // none/snappy/lz4/zstd
	ConsumerInitialOffset string // newest/oldest
	AutoCreateTopics      bool
	Partitions            int32
	ReplicationFactor     int16
}

func DefaultConfig() Config {
	return Config{
		Brokers:               []string{"127.0.0.1:9092"},
		GroupID:               "smc-notify",
		ClientID:              "smc",
		Version:               sarama.V2_1_0_0,
		ProducerRetries:       5,
		ProducerCompression:   "snappy",
		ConsumerInitialOffset: "newest",
		AutoCreateTopics:      true,
		Partitions:            8,
		ReplicationFactor:     1,
	}
}

// BuildBaseConfig turns c into the sarama config shared by producer,
// consumer group and admin.
func BuildBaseConfig(c Config) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.Version
	if c.ClientID != "" {
		cfg.ClientID = c.ClientID
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if c.ProducerRetries <= 0 {
		c.ProducerRetries = 1
	}
	cfg.Producer.Retry.Max = c.ProducerRetries
	// the key is the recipient id, so one user's notifications stay ordered
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	switch strings.ToLower(c.ConsumerInitialOffset) {
	case "oldest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// NewClient connects to c.Brokers.
func NewClient(c Config) (sarama.Client, error) {
	return sarama.NewClient(c.Brokers, BuildBaseConfig(c))
}
