// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the lifecycle state of a newsletter campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// Campaign is one newsletter composition and its send lifecycle.
// emails_sent/emails_failed are a cache of the send log counts; the
// log is authoritative and Recount resynchronizes them.
type Campaign struct {
	ID              string         `db:"id" json:"id"`
	Subject         string         `db:"subject" json:"subject"`
	Content         string         `db:"content" json:"content"`
	ContentHTML     string         `db:"content_html" json:"content_html"`
	Status          CampaignStatus `db:"status" json:"status"`
	ScheduledFor    *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	TotalRecipients int            `db:"total_recipients" json:"total_recipients"`
	EmailsSent      int            `db:"emails_sent" json:"emails_sent"`
	EmailsFailed    int            `db:"emails_failed" json:"emails_failed"`
	SentAt          *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// transitions lists the allowed forward moves of the status machine:
// draft -> scheduled -> sending -> {sent, failed}, or draft -> sending
// for immediate sends. A retry pass never re-enters sending.
var transitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignSending},
	CampaignScheduled: {CampaignSending},
	CampaignSending:   {CampaignSent, CampaignFailed},
	CampaignFailed:    {CampaignSent}, // promotion after a fully successful retry
}

// CanTransition reports whether moving from -> to is a legal status change.
func CanTransition(from, to CampaignStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the campaign has finished a send pass.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignSent || s == CampaignFailed
}
