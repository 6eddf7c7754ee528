package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/seasonal/internal/logging"
)

// memoryBuffer is the per-subject channel capacity
const memoryBuffer = 10000

// MemoryQueue implements Queue with in-memory channels. Used by the CLI, tests
// and single-process deployments. Failed messages are logged and dropped.
type MemoryQueue struct {
	logger        *logging.Logger
	channels      map[string]chan []byte
	subscriptions map[string]*memorySubscription
	wg            sync.WaitGroup
	mu            sync.RWMutex
	closed        bool
}

// memorySubscription is one delivery goroutine; done closes when it exits
type memorySubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue(logger *logging.Logger) *MemoryQueue {
	return &MemoryQueue{
		logger:        logger,
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]*memorySubscription),
	}
}

// channel returns the channel of subject, creating it on first use
func (q *MemoryQueue) channel(subject string) (chan []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("memory queue is closed")
	}
	if ch, exists := q.channels[subject]; exists {
		return ch, nil
	}

	ch := make(chan []byte, memoryBuffer)
	q.channels[subject] = ch
	return ch, nil
}

// Publish publishes a message to an in-memory channel
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	ch, err := q.channel(subject)
	if err != nil {
		return err
	}

	// Copy so the caller may reuse its buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	// Close takes the write lock before closing channels
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("memory queue is closed")
	}

	select {
	case ch <- dataCopy:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// PublishBatch publishes multiple messages, stopping at the first failure
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	for i, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			return i, err
		}
	}
	return len(messages), nil
}

// Subscribe starts delivering messages of subject to handler
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	ch, err := q.channel(subject)
	if err != nil {
		return err
	}

	q.mu.Lock()
	if _, exists := q.subscriptions[subject]; exists {
		q.mu.Unlock()
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &memorySubscription{cancel: cancel, done: make(chan struct{})}
	q.subscriptions[subject] = sub
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				// Both cases may be ready at once; keep the message for a later subscriber
				if ctx.Err() != nil {
					q.requeue(ch, data)
					return
				}
				if err := handler(data); err != nil {
					q.logger.Warn("Memory queue handler failed", "subject", subject, "error", err)
				}
			}
		}
	}()

	return nil
}

// requeue puts a message back after a cancelled delivery; it is dropped when
// the buffer is full or the queue is closing
func (q *MemoryQueue) requeue(ch chan []byte, data []byte) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case ch <- data:
	default:
		q.logger.Warn("Memory queue dropped message on unsubscribe")
	}
}

// Unsubscribe stops delivery for subject and waits for a running handler to
// return. Pending messages stay buffered. Must not be called from the handler.
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	sub, exists := q.subscriptions[subject]
	if !exists {
		q.mu.Unlock()
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	sub.cancel()
	delete(q.subscriptions, subject)
	q.mu.Unlock()

	<-sub.done
	return nil
}

// Close stops all subscriptions, waits for running handlers and closes channels
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for subject, sub := range q.subscriptions {
		sub.cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}
	return nil
}

// PendingCount returns the number of buffered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
