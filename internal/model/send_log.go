// internal/model/send_log.go
package model

import "time"

// SendLogStatus is the delivery outcome for one (campaign, recipient) pair.
type SendLogStatus string

const (
	SendPending SendLogStatus = "pending"
	SendSent    SendLogStatus = "sent"
	SendFailed  SendLogStatus = "failed"
)

// SendLog is one row per (campaign, subscriber email) pair. The unique
// constraint on that pair is the idempotence anchor for retries: a retry
// updates the existing failed row in place and never inserts a second one.
type SendLog struct {
	ID              int           `db:"id" json:"id"`
	CampaignID      string        `db:"campaign_id" json:"campaign_id"`
	SubscriberEmail string        `db:"subscriber_email" json:"subscriber_email"`
	Status          SendLogStatus `db:"status" json:"status"`
	ErrorMessage    string        `db:"error_message" json:"error_message,omitempty"`
	SentAt          *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
