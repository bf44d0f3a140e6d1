// internal/service/dispatcher.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/lostandunfounds/newsletter-backend/internal/config"
	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/mailer"
	"github.com/lostandunfounds/newsletter-backend/internal/metrics"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
)

// Dispatcher executes send and retry passes. Recipients are processed
// sequentially within a pass: the provider is rate limited, and the
// one-row-per-recipient bookkeeping needs no locking that way. Two passes
// for the same campaign can never run concurrently; the sending-status
// claim and the terminal-state retry precondition enforce that.
type Dispatcher struct {
	Campaigns   repository.CampaignRepositoryInterface
	Subscribers repository.SubscriberRepositoryInterface
	Logs        repository.SendLogRepositoryInterface
	Transport   mailer.Transport

	Now func() time.Time

	cfg     config.SendingConfig
	limiter *rate.Limiter
}

// PassResult is the operator-facing summary of one pass.
type PassResult struct {
	CampaignID      string `json:"campaign_id"`
	TotalRecipients int    `json:"total_recipients"`
	EmailsSent      int    `json:"emails_sent"`
	EmailsFailed    int    `json:"emails_failed"`
	Attempted       int    `json:"attempted"`
}

func NewDispatcher(
	campaigns repository.CampaignRepositoryInterface,
	subscribers repository.SubscriberRepositoryInterface,
	logs repository.SendLogRepositoryInterface,
	transport mailer.Transport,
	cfg config.SendingConfig,
) *Dispatcher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	return &Dispatcher{
		Campaigns:   campaigns,
		Subscribers: subscribers,
		Logs:        logs,
		Transport:   transport,
		cfg:         cfg,
		Now:         time.Now,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Dispatch runs a full send pass over the current eligible-subscriber
// snapshot. Preconditions are checked before any state is touched, so a
// rejected dispatch leaves no residue.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID string) (*PassResult, error) {
	campaign, err := d.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignScheduled {
		return nil, &apperrors.NotReadyError{CampaignID: campaignID, Status: string(campaign.Status)}
	}
	if campaign.Status == model.CampaignScheduled && !IsDue(campaign, d.Now()) {
		return nil, &apperrors.NotReadyError{CampaignID: campaignID, Status: string(campaign.Status), ScheduledFor: campaign.ScheduledFor}
	}

	recipients, err := d.Subscribers.ListEligible()
	if err != nil {
		return nil, fmt.Errorf("list eligible subscribers: %w", err)
	}
	if len(recipients) == 0 {
		return nil, &apperrors.NoRecipientsError{CampaignID: campaignID}
	}

	// The snapshot is fixed from here on; mid-pass unsubscribes still
	// receive this pass's send.
	if err := d.Campaigns.ClaimForSending(campaignID, len(recipients)); err != nil {
		return nil, err
	}

	result := &PassResult{CampaignID: campaignID, TotalRecipients: len(recipients)}
	for _, recipient := range recipients {
		if err := d.deliver(ctx, campaign, recipient.Email, result); err != nil {
			// Invariant violation or cancelled context: the campaign stays
			// in sending; recovery is Recount plus an operator retry.
			return nil, err
		}
	}

	sentAt := d.Now()
	if err := d.Campaigns.UpdateCounters(campaignID, result.EmailsSent, result.EmailsFailed, &sentAt); err != nil {
		return nil, fmt.Errorf("persist counters: %w", err)
	}

	final := model.CampaignSent
	if result.EmailsSent == 0 {
		final = model.CampaignFailed
	}
	if err := d.Campaigns.UpdateStatus(campaignID, final); err != nil {
		return nil, fmt.Errorf("finalize status: %w", err)
	}

	metrics.Passes.WithLabelValues("send", string(final)).Inc()
	log.Printf("campaign %s: pass complete, %d sent, %d failed of %d",
		campaignID, result.EmailsSent, result.EmailsFailed, result.TotalRecipients)
	return result, nil
}

// Retry re-attempts delivery for the failed subset of a finished campaign.
// An empty target set is a valid zero-effect outcome, not an error.
func (d *Dispatcher) Retry(ctx context.Context, campaignID string, emails []string) (*PassResult, error) {
	campaign, err := d.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status == model.CampaignSending {
		return nil, &apperrors.ConflictError{CampaignID: campaignID, Reason: "a send pass is still in progress"}
	}
	if !campaign.Status.IsTerminal() {
		return nil, &apperrors.ConflictError{CampaignID: campaignID, Reason: "campaign has not completed a send pass"}
	}

	targets, err := d.Logs.ListFailed(campaignID, emails)
	if err != nil {
		return nil, fmt.Errorf("list failed deliveries: %w", err)
	}
	if d.cfg.RetryBatchSize > 0 && len(targets) > d.cfg.RetryBatchSize {
		targets = targets[:d.cfg.RetryBatchSize]
	}

	result := &PassResult{CampaignID: campaignID, TotalRecipients: campaign.TotalRecipients}
	if len(targets) == 0 {
		result.EmailsSent = campaign.EmailsSent
		result.EmailsFailed = campaign.EmailsFailed
		return result, nil
	}

	for _, target := range targets {
		if err := d.deliver(ctx, campaign, target.SubscriberEmail, result); err != nil {
			return nil, err
		}
	}

	// The cached counters come back from the full log, not the delta.
	recounted, err := d.Campaigns.Recount(campaignID)
	if err != nil {
		return nil, fmt.Errorf("recount after retry: %w", err)
	}
	result.EmailsSent = recounted.EmailsSent
	result.EmailsFailed = recounted.EmailsFailed

	// A retry that clears every failure promotes a failed campaign to
	// sent. Status is otherwise untouched by retries.
	if campaign.Status == model.CampaignFailed && recounted.EmailsFailed == 0 && recounted.EmailsSent > 0 {
		if err := d.Campaigns.UpdateStatus(campaignID, model.CampaignSent); err != nil {
			return nil, fmt.Errorf("promote after retry: %w", err)
		}
	}

	metrics.Passes.WithLabelValues("retry", "completed").Inc()
	log.Printf("campaign %s: retry complete, %d attempted, counters now %d sent / %d failed",
		campaignID, result.Attempted, result.EmailsSent, result.EmailsFailed)
	return result, nil
}

// TestSend delivers the campaign body to one explicit address without
// touching the subscriber snapshot, the send log, or the counters.
func (d *Dispatcher) TestSend(ctx context.Context, campaignID, toEmail string) error {
	campaign, err := d.Campaigns.GetByID(campaignID)
	if err != nil {
		return err
	}

	res := d.Transport.Send(ctx, mailer.OutgoingEmail{
		To:       repository.NormalizeEmail(toEmail),
		Subject:  campaign.Subject,
		HTMLBody: mailer.PersonalizeHTML(campaign.ContentHTML, toEmail, d.cfg.UnsubscribeBaseURL),
		TextBody: campaign.Content,
	})
	if !res.OK {
		return fmt.Errorf("test send to %s: %s", toEmail, res.ErrorMessage())
	}
	return nil
}

// deliver runs the per-recipient sequence: upsertPending, one transport
// attempt, recordOutcome. A transport failure is absorbed into the log and
// the pass continues; only bookkeeping failures abort.
func (d *Dispatcher) deliver(ctx context.Context, campaign *model.Campaign, email string, result *PassResult) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := d.Logs.UpsertPending(campaign.ID, email); err != nil {
		return fmt.Errorf("upsert pending for %s: %w", email, err)
	}

	res := d.Transport.Send(ctx, mailer.OutgoingEmail{
		To:       email,
		Subject:  campaign.Subject,
		HTMLBody: mailer.PersonalizeHTML(campaign.ContentHTML, email, d.cfg.UnsubscribeBaseURL),
		TextBody: campaign.Content,
	})
	result.Attempted++

	if res.OK {
		if err := d.Logs.RecordOutcome(campaign.ID, email, model.SendSent, ""); err != nil {
			return d.fatalOutcome(err, email)
		}
		result.EmailsSent++
		metrics.Deliveries.WithLabelValues("sent").Inc()
		return nil
	}

	if err := d.Logs.RecordOutcome(campaign.ID, email, model.SendFailed, res.ErrorMessage()); err != nil {
		return d.fatalOutcome(err, email)
	}
	result.EmailsFailed++
	metrics.Deliveries.WithLabelValues("failed").Inc()
	return nil
}

// fatalOutcome flags the missing-row invariant violation loudly; it is a
// programming error, not a runtime condition to absorb.
func (d *Dispatcher) fatalOutcome(err error, email string) error {
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		log.Printf("FATAL: recordOutcome without prior upsertPending for %s: %v", email, err)
	}
	return fmt.Errorf("record outcome for %s: %w", email, err)
}
