// internal/errors/errors.go
package apperrors

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed campaign or subscriber input.
// It is surfaced directly to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing campaign, subscriber, or send-log row.
// A missing send-log row during recordOutcome is an invariant violation
// and is treated as fatal to the pass.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewCampaignNotFound(id string) error {
	return &NotFoundError{Resource: "campaign", ID: id}
}

func NewSendLogNotFound(campaignID, email string) error {
	return &NotFoundError{Resource: "send log", ID: campaignID + "/" + email}
}

// InvalidTransitionError reports an illegal campaign status change,
// e.g. sent -> sending.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// NotReadyError reports a dispatch attempted before the campaign is
// eligible: a scheduled campaign ahead of its schedule time, or a
// campaign outside the draft/scheduled states.
type NotReadyError struct {
	CampaignID   string
	Status       string
	ScheduledFor *time.Time
}

func (e *NotReadyError) Error() string {
	if e.ScheduledFor != nil {
		return fmt.Sprintf("campaign %s is scheduled for %s and not yet due", e.CampaignID, e.ScheduledFor.Format(time.RFC3339))
	}
	return fmt.Sprintf("campaign %s cannot be dispatched in status %s", e.CampaignID, e.Status)
}

// NoRecipientsError reports a dispatch against an empty eligible-subscriber
// set. The campaign is left in its pre-send state.
type NoRecipientsError struct {
	CampaignID string
}

func (e *NoRecipientsError) Error() string {
	return fmt.Sprintf("campaign %s has no eligible recipients", e.CampaignID)
}

// ConflictError reports an operation rejected because another pass owns the
// campaign, e.g. a retry while a send pass is still running.
type ConflictError struct {
	CampaignID string
	Reason     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("campaign %s: %s", e.CampaignID, strings.TrimSpace(e.Reason))
}
