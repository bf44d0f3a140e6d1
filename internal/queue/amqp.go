// internal/queue/amqp.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

const dispatchQueueName = "campaign_dispatch"

type dispatchJob struct {
	CampaignID string `json:"campaign_id"`
}

// AMQPQueue is a RabbitMQ-backed DispatchQueue.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPQueue(amqpURL string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		dispatchQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch}, nil
}

var _ DispatchQueue = (*AMQPQueue)(nil)

func (q *AMQPQueue) Publish(_ context.Context, campaignID string) error {
	body, err := json.Marshal(dispatchJob{CampaignID: campaignID})
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		dispatchQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) Consume(ctx context.Context, handler func(campaignID string) error) error {
	msgs, err := q.ch.Consume(
		dispatchQueueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}
			var job dispatchJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("invalid dispatch job:", err)
				d.Ack(false)
				continue
			}
			if err := handler(job.CampaignID); err != nil {
				log.Printf("dispatch job %s failed: %v", job.CampaignID, err)
			}
			// Ack regardless: duplicate delivery is rejected by the
			// sending-status claim, and failed passes are operator-retried.
			d.Ack(false)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
