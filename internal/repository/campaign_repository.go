package repository

import (
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	List(offset, limit int, status string) ([]*model.Campaign, int, error)
	ListDue(now time.Time, limit int) ([]*model.Campaign, error)
	Delete(id string) error

	// ClaimForSending atomically moves a draft/scheduled campaign into
	// sending and fixes total_recipients for the pass. Returns
	// ConflictError when another pass already owns the campaign.
	ClaimForSending(id string, totalRecipients int) error
	UpdateStatus(id string, status model.CampaignStatus) error
	UpdateCounters(id string, sent, failed int, sentAt *time.Time) error

	// Recount recomputes the cached counters from the send log, which is
	// the source of truth. Used after a crash mid-pass and after retries.
	Recount(id string) (*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, subject, content, content_html, status, scheduled_for,
		total_recipients, emails_sent, emails_failed, sent_at, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO newsletter_campaigns (id, subject, content, content_html, status, scheduled_for, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.Exec(query, c.ID, c.Subject, c.Content, c.ContentHTML, c.Status, c.ScheduledFor, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM newsletter_campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	return c, err
}

func (r *CampaignRepository) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM newsletter_campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM newsletter_campaigns`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += ` WHERE status=$1`
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListDue returns scheduled campaigns whose schedule time has arrived,
// oldest first.
func (r *CampaignRepository) ListDue(now time.Time, limit int) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM newsletter_campaigns
        WHERE status=$1 AND scheduled_for <= $2
        ORDER BY scheduled_for ASC
        LIMIT $3`
	rows, err := r.DB.Query(query, model.CampaignScheduled, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Delete(id string) error {
	// Send logs go with the campaign via the FK cascade.
	res, err := r.DB.Exec(`DELETE FROM newsletter_campaigns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepository) ClaimForSending(id string, totalRecipients int) error {
	query := `
        UPDATE newsletter_campaigns
        SET status=$1, total_recipients=$2, emails_sent=0, emails_failed=0, updated_at=NOW()
        WHERE id=$3 AND status IN ($4, $5)
    `
	res, err := r.DB.Exec(query, model.CampaignSending, totalRecipients, id, model.CampaignDraft, model.CampaignScheduled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &apperrors.ConflictError{CampaignID: id, Reason: "another pass already claimed this campaign"}
	}
	return nil
}

func (r *CampaignRepository) UpdateStatus(id string, status model.CampaignStatus) error {
	query := `UPDATE newsletter_campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

func (r *CampaignRepository) UpdateCounters(id string, sent, failed int, sentAt *time.Time) error {
	query := `
        UPDATE newsletter_campaigns
        SET emails_sent=$1, emails_failed=$2, sent_at=COALESCE($3, sent_at), updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, sent, failed, sentAt, id)
	return err
}

func (r *CampaignRepository) Recount(id string) (*model.Campaign, error) {
	query := `
        UPDATE newsletter_campaigns SET
            emails_sent   = (SELECT COUNT(*) FROM newsletter_send_logs WHERE campaign_id=$1 AND status='sent'),
            emails_failed = (SELECT COUNT(*) FROM newsletter_send_logs WHERE campaign_id=$1 AND status='failed'),
            updated_at    = NOW()
        WHERE id=$1
        RETURNING ` + campaignColumns
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	return c, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.Subject, &c.Content, &c.ContentHTML, &c.Status, &c.ScheduledFor,
		&c.TotalRecipients, &c.EmailsSent, &c.EmailsFailed, &c.SentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
