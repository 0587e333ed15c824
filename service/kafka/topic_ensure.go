package kafka

import (
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/golang/glog"
)

// EnsureTopics creates missing topics and grows the partition count of
// existing ones up to c.Partitions. Partitions are never reduced.
func EnsureTopics(admin sarama.ClusterAdmin, topics []string, c Config) error {
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return fmt.Errorf("describe topic %s: %w", t, err)
		}
		exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

		minISR := "1"
		if c.ReplicationFactor >= 3 {
			minISR = "2"
		}

		if !exists {
			td := &sarama.TopicDetail{
				NumPartitions:     c.Partitions,
				ReplicationFactor: c.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"),
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				var te *sarama.TopicError
				if errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists {
					glog.Infof("[kafka] topic exists (race): %s", t)
					continue
				}
				if errors.Is(err, sarama.ErrTopicAlreadyExists) {
					glog.Infof("[kafka] topic exists (race): %s", t)
					continue
				}
				return fmt.Errorf("create topic %s: %w", t, err)
			}
			glog.Infof("[kafka] topic created: %s (partitions=%d, rf=%d)", t, c.Partitions, c.ReplicationFactor)
			continue
		}

		curParts := int32(len(descs[0].Partitions))
		if c.Partitions > curParts {
			err := admin.CreatePartitions(t, c.Partitions, nil, false)
			if err != nil {
				return fmt.Errorf("expand partitions %s from %d to %d: %w", t, curParts, c.Partitions, err)
			}
			glog.Infof("[kafka] topic partitions expanded: %s (%d -> %d)", t, curParts, c.Partitions)
		} else {
			glog.V(1).Infof("[kafka] topic exists: %s (partitions=%d, rf~=%d)", t, curParts, c.ReplicationFactor)
		}
	}
	return nil
}

// EnsureTopicsOnBrokers opens a short-lived admin connection for EnsureTopics.
func EnsureTopicsOnBrokers(topics []string, c Config) error {
	admin, err := sarama.NewClusterAdmin(c.Brokers, BuildBaseConfig(c))
	if err != nil {
		return fmt.Errorf("new cluster admin: %w", err)
	}
	defer func() { _ = admin.Close() }()
	return EnsureTopics(admin, topics, c)
}

func strPtr(s string) *string { return &s }
