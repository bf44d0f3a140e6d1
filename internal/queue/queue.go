// internal/queue/queue.go
package queue

import (
	"context"
	"log"
)

// DispatchQueue carries campaign IDs from the scheduler poll loop to the
// dispatch consumer. Payloads are campaign IDs only; the consumer reloads
// state from the database so a stale message is harmless.
type DispatchQueue interface {
	Publish(ctx context.Context, campaignID string) error
	// Consume blocks, invoking handler once per message, until ctx is
	// cancelled. Handler errors are logged and the message is dropped:
	// a campaign stuck mid-pass is recovered by operator retry, never by
	// automatic redelivery.
	Consume(ctx context.Context, handler func(campaignID string) error) error
}

// InMemoryQueue is a channel-backed DispatchQueue for single-process
// deployments and tests.
type InMemoryQueue struct {
	jobs chan string
}

func NewInMemoryQueue(buffer int) *InMemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &InMemoryQueue{jobs: make(chan string, buffer)}
}

var _ DispatchQueue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Publish(ctx context.Context, campaignID string) error {
	select {
	case q.jobs <- campaignID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Consume(ctx context.Context, handler func(campaignID string) error) error {
	for {
		select {
		case id := <-q.jobs:
			if err := handler(id); err != nil {
				log.Printf("dispatch job %s failed: %v", id, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
