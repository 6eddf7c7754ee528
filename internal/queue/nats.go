package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/soltixdb/seasonal/internal/logging"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string // Server URL (e.g., nats://localhost:4222)
	Username string // Optional authentication
	Password string // Optional authentication
	Stream   string // Stream name prefix (default: "SEASONAL")
}

// NATSQueue implements Queue using NATS JetStream. Each subject is backed by
// its own file-stored stream and a durable consumer.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	config        NATSConfig
	logger        *logging.Logger
	streams       map[string]bool
	subscriptions map[string]*nats.Subscription
	mu            sync.RWMutex
}

// newNATSQueue connects to NATS and enables JetStream
func newNATSQueue(cfg NATSConfig, logger *logging.Logger) (*NATSQueue, error) {
	opts := []nats.Option{
		nats.Name("seasonal-analyzer"),
		nats.Timeout(5 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn builds the queue on an existing connection
func newNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig, logger *logging.Logger) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "SEASONAL"
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		config:        cfg,
		logger:        logger,
		streams:       make(map[string]bool),
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// streamName returns the stream that stores subject
func (q *NATSQueue) streamName(subject string) string {
	return q.config.Stream + "-" + sanitizeName(subject)
}

// ensureStream creates the stream for subject if it does not exist yet
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.RLock()
	known := q.streams[subject]
	q.mu.RUnlock()
	if known {
		return nil
	}

	name := q.streamName(subject)
	if _, err := q.js.StreamInfo(name); err != nil {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}

	q.mu.Lock()
	q.streams[subject] = true
	q.mu.Unlock()
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes all messages asynchronously, then waits for every ack
// or for ctx to end.
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			q.logger.Warn("NATS batch message skipped", "subject", msg.Subject, "error", err)
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			q.logger.Warn("NATS batch message skipped", "subject", msg.Subject, "error", err)
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			q.logger.Warn("NATS batch publish failed", "subject", future.Msg().Subject, "error", err)
		default:
			// Resolved by PublishAsyncComplete
			successCount++
		}
	}

	return successCount, nil
}

// Subscribe attaches a durable consumer to subject. Handler errors NAK the
// message for redelivery, up to three deliveries.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.RLock()
	_, exists := q.subscriptions[subject]
	q.mu.RUnlock()
	if exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := q.ensureStream(subject); err != nil {
		return err
	}

	durableName := "seasonal-" + sanitizeName(subject)

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.logger.Warn("NATS handler failed, message will be redelivered", "subject", subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.mu.Lock()
	q.subscriptions[subject] = sub
	q.mu.Unlock()
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			q.logger.Warn("NATS unsubscribe failed", "subject", subject, "error", err)
		}
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// sanitizeName replaces characters not allowed in stream and consumer names
// (A-Z, a-z, 0-9, dash and underscore are kept)
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
