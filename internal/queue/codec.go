package queue

import (
	"context"
	"fmt"

	"github.com/soltixdb/seasonal/internal/compression"
)

// framedQueue compresses outgoing payloads and decodes incoming ones
type framedQueue struct {
	Queue
	compressor compression.Compressor
}

// WithCompression wraps q so every published payload is framed with the given
// algorithm. Received payloads are unframed whatever the producer used.
func WithCompression(q Queue, algo compression.Algorithm) (Queue, error) {
	c, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	return &framedQueue{Queue: q, compressor: c}, nil
}

func (q *framedQueue) Publish(ctx context.Context, subject string, data []byte) error {
	framed, err := compression.Frame(q.compressor, data)
	if err != nil {
		return fmt.Errorf("failed to compress message for %s: %w", subject, err)
	}
	return q.Queue.Publish(ctx, subject, framed)
}

func (q *framedQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	framed := make([]BatchMessage, len(messages))
	for i, msg := range messages {
		data, err := compression.Frame(q.compressor, msg.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to compress message for %s: %w", msg.Subject, err)
		}
		framed[i] = BatchMessage{Subject: msg.Subject, Data: data}
	}
	return q.Queue.PublishBatch(ctx, framed)
}

func (q *framedQueue) Subscribe(subject string, handler MessageHandler) error {
	return q.Queue.Subscribe(subject, func(data []byte) error {
		payload, err := compression.Unframe(data)
		if err != nil {
			return fmt.Errorf("failed to decode message on %s: %w", subject, err)
		}
		return handler(payload)
	})
}
