package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueueDeliversInOrder(t *testing.T) {
	q := NewInMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, "c1"))
	require.NoError(t, q.Publish(ctx, "c2"))

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(id string) error {
			got = append(got, id)
			if len(got) == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
	assert.Equal(t, []string{"c1", "c2"}, got)
}

func TestInMemoryQueueDropsFailedJobs(t *testing.T) {
	q := NewInMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, "bad"))
	require.NoError(t, q.Publish(ctx, "good"))

	var handled []string
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(id string) error {
			handled = append(handled, id)
			if id == "bad" {
				return errors.New("dispatch failed")
			}
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
	// The failed job is not redelivered; the next one still comes through.
	assert.Equal(t, []string{"bad", "good"}, handled)
}

func TestInMemoryQueuePublishBlockedByFullBuffer(t *testing.T) {
	q := NewInMemoryQueue(1)
	require.NoError(t, q.Publish(context.Background(), "c1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, "c2")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
