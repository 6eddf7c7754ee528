package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/seasonal/internal/compression"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
)

// NewQueue creates a Queue from configuration. An empty type selects the
// in-memory backend. Compression other than none wraps the backend.
func NewQueue(cfg config.QueueConfig, logger *logging.Logger) (Queue, error) {
	if logger == nil {
		logger = logging.Global()
	}

	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}

	q, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	if algo == compression.None {
		return q, nil
	}
	return WithCompression(q, algo)
}

func newBackend(cfg config.QueueConfig, logger *logging.Logger) (Queue, error) {
	queueType := Type(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = TypeMemory
	}

	switch queueType {
	case TypeNATS:
		return newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Stream:   cfg.NATSStream,
		}, logger)

	case TypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		}, logger)

	case TypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}, logger)

	case TypeMemory:
		return newMemoryQueue(logger), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}
