// cmd/worker/main.go
//
// The worker owns scheduled delivery: a poll loop finds campaigns whose
// schedule time has arrived and publishes their IDs to the dispatch
// queue; a consumer runs the send pass for each. With AMQP_URL set the
// queue is RabbitMQ and the poller and consumer can run in separate
// processes; without it an in-memory queue keeps everything in one.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lostandunfounds/newsletter-backend/internal/config"
	"github.com/lostandunfounds/newsletter-backend/internal/db"
	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/mailer"
	"github.com/lostandunfounds/newsletter-backend/internal/queue"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
	"github.com/lostandunfounds/newsletter-backend/internal/service"
)

const pollInterval = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}
	logRepo := &repository.SendLogRepository{DB: conn}

	var transport mailer.Transport
	if cfg.Zoho.Configured() {
		transport = mailer.NewZohoClient(cfg.Zoho)
	} else {
		log.Println("zoho credentials not configured, using mock transport")
		transport = mailer.NewMockTransport()
	}

	dispatcher := service.NewDispatcher(campaignRepo, subscriberRepo, logRepo, transport, cfg.Sending)
	scheduler := service.NewScheduler(campaignRepo)

	var q queue.DispatchQueue
	if cfg.AMQPURL != "" {
		aq, err := queue.NewAMQPQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatal(err)
		}
		defer aq.Close()
		q = aq
	} else {
		log.Println("AMQP_URL not set, using in-memory dispatch queue")
		q = queue.NewInMemoryQueue(64)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pollScheduled(ctx, scheduler, q)

	log.Println("worker running, waiting for due campaigns")
	if err := q.Consume(ctx, func(campaignID string) error {
		return dispatch(ctx, dispatcher, campaignID)
	}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

// pollScheduled publishes due campaign IDs on a fixed interval. Publishing
// the same campaign twice is harmless: the sending-status claim rejects
// the second pass.
func pollScheduled(ctx context.Context, scheduler *service.Scheduler, q queue.DispatchQueue) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			due, err := scheduler.Due(10)
			if err != nil {
				log.Println("poll scheduled campaigns:", err)
				continue
			}
			for _, c := range due {
				log.Printf("campaign %s due (scheduled for %s)", c.ID, c.ScheduledFor.Format(time.RFC3339))
				if err := q.Publish(ctx, c.ID); err != nil {
					log.Println("publish dispatch job:", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func dispatch(ctx context.Context, d *service.Dispatcher, campaignID string) error {
	result, err := d.Dispatch(ctx, campaignID)
	if err != nil {
		// Lost the claim race or the campaign moved on; nothing to do.
		var conflict *apperrors.ConflictError
		var notReady *apperrors.NotReadyError
		if errors.As(err, &conflict) || errors.As(err, &notReady) {
			log.Printf("campaign %s skipped: %v", campaignID, err)
			return nil
		}
		return err
	}
	log.Printf("campaign %s dispatched: %d sent, %d failed of %d",
		campaignID, result.EmailsSent, result.EmailsFailed, result.TotalRecipients)
	return nil
}
