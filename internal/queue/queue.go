// Package queue carries analysis jobs, results and anomaly alerts over a
// message broker. Backends: in-memory, NATS JetStream, Redis Streams, Kafka.
package queue

import "context"

// Type names a queue backend
type Type string

const (
	TypeMemory Type = "memory"
	TypeNATS   Type = "nats"
	TypeRedis  Type = "redis"
	TypeKafka  Type = "kafka"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and waits for all to complete.
	// Returns the number of successfully published messages and any error.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error leaves the
// message unacknowledged so the backend may redeliver it.
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}
