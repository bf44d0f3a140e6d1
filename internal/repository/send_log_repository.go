package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
)

type SendLogRepositoryInterface interface {
	// UpsertPending inserts a pending row for the pair if none exists.
	// An existing row of any status makes this a no-op; the unique
	// constraint on (campaign_id, subscriber_email) closes the race
	// between concurrent dispatch attempts.
	UpsertPending(campaignID, email string) error

	// RecordOutcome updates the existing row in place. A missing row means
	// the pass skipped UpsertPending, which is an invariant violation
	// surfaced as NotFoundError.
	RecordOutcome(campaignID, email string, status model.SendLogStatus, errorMessage string) error

	// ListFailed returns the retry target set: all failed rows for the
	// campaign, optionally restricted to an explicit address subset.
	ListFailed(campaignID string, emails []string) ([]model.SendLog, error)

	ListByCampaign(campaignID string, status string) ([]model.SendLog, error)
	CountByStatus(campaignID string) (map[model.SendLogStatus]int, error)
}

type SendLogRepository struct {
	DB *sql.DB
}

const sendLogColumns = `id, campaign_id, subscriber_email, status, COALESCE(error_message, ''), sent_at, created_at, updated_at`

func (r *SendLogRepository) UpsertPending(campaignID, email string) error {
	query := `
        INSERT INTO newsletter_send_logs (campaign_id, subscriber_email, status, created_at, updated_at)
        VALUES ($1, $2, 'pending', NOW(), NOW())
        ON CONFLICT (campaign_id, subscriber_email) DO NOTHING
    `
	_, err := r.DB.Exec(query, campaignID, NormalizeEmail(email))
	return err
}

func (r *SendLogRepository) RecordOutcome(campaignID, email string, status model.SendLogStatus, errorMessage string) error {
	var sentAt *time.Time
	if status == model.SendSent {
		now := time.Now()
		sentAt = &now
	}
	query := `
        UPDATE newsletter_send_logs
        SET status=$1, error_message=NULLIF($2, ''), sent_at=$3, updated_at=NOW()
        WHERE campaign_id=$4 AND subscriber_email=$5
    `
	res, err := r.DB.Exec(query, status, errorMessage, sentAt, campaignID, NormalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewSendLogNotFound(campaignID, NormalizeEmail(email))
	}
	return nil
}

func (r *SendLogRepository) ListFailed(campaignID string, emails []string) ([]model.SendLog, error) {
	query := `SELECT ` + sendLogColumns + `
        FROM newsletter_send_logs
        WHERE campaign_id=$1 AND status='failed'`
	args := []interface{}{campaignID}

	if len(emails) > 0 {
		normalized := make([]string, len(emails))
		for i, e := range emails {
			normalized[i] = NormalizeEmail(e)
		}
		query += ` AND subscriber_email = ANY($2)`
		args = append(args, pq.Array(normalized))
	}
	query += ` ORDER BY subscriber_email`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSendLogs(rows)
}

func (r *SendLogRepository) ListByCampaign(campaignID string, status string) ([]model.SendLog, error) {
	query := `SELECT ` + sendLogColumns + `
        FROM newsletter_send_logs
        WHERE campaign_id=$1`
	args := []interface{}{campaignID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSendLogs(rows)
}

func (r *SendLogRepository) CountByStatus(campaignID string) (map[model.SendLogStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM newsletter_send_logs WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.SendLogStatus]int{
		model.SendPending: 0,
		model.SendSent:    0,
		model.SendFailed:  0,
	}
	for rows.Next() {
		var status model.SendLogStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanSendLogs(rows *sql.Rows) ([]model.SendLog, error) {
	logs := []model.SendLog{}
	for rows.Next() {
		var l model.SendLog
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.SubscriberEmail, &l.Status, &l.ErrorMessage,
			&l.SentAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

var _ SendLogRepositoryInterface = (*SendLogRepository)(nil)
