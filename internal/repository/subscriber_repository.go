package repository

import (
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
)

type SubscriberRepositoryInterface interface {
	// ListEligible returns the fan-out list: verified subscribers who have
	// not unsubscribed, ordered by email. Callers treat the result as an
	// immutable snapshot for the duration of a pass.
	ListEligible() ([]model.Subscriber, error)
	Subscribe(email string) (*model.Subscriber, error)
	Unsubscribe(email string) error
	GetByEmail(email string) (*model.Subscriber, error)
}

type SubscriberRepository struct {
	DB *sql.DB
}

// NormalizeEmail is the canonical form used for subscriber identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *SubscriberRepository) ListEligible() ([]model.Subscriber, error) {
	query := `
        SELECT id, email, verified, unsubscribed_at, created_at
        FROM newsletter_subscribers
        WHERE verified = TRUE AND unsubscribed_at IS NULL
        ORDER BY email
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscribers := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Verified, &s.UnsubscribedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

// Subscribe inserts the address or revives an unsubscribed one. Calling it
// twice for the same address is a no-op beyond re-verifying.
func (r *SubscriberRepository) Subscribe(email string) (*model.Subscriber, error) {
	query := `
        INSERT INTO newsletter_subscribers (email, verified, created_at)
        VALUES ($1, TRUE, NOW())
        ON CONFLICT (email) DO UPDATE SET verified = TRUE, unsubscribed_at = NULL
        RETURNING id, email, verified, unsubscribed_at, created_at
    `
	var s model.Subscriber
	err := r.DB.QueryRow(query, NormalizeEmail(email)).Scan(&s.ID, &s.Email, &s.Verified, &s.UnsubscribedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriberRepository) Unsubscribe(email string) error {
	query := `
        UPDATE newsletter_subscribers
        SET verified = FALSE, unsubscribed_at = $1
        WHERE email = $2 AND unsubscribed_at IS NULL
    `
	res, err := r.DB.Exec(query, time.Now(), NormalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either unknown or already unsubscribed; distinguish for the caller.
		existing, err := r.GetByEmail(email)
		if err != nil {
			return err
		}
		if existing == nil {
			return &apperrors.NotFoundError{Resource: "subscriber", ID: NormalizeEmail(email)}
		}
	}
	return nil
}

func (r *SubscriberRepository) GetByEmail(email string) (*model.Subscriber, error) {
	query := `
        SELECT id, email, verified, unsubscribed_at, created_at
        FROM newsletter_subscribers
        WHERE email = $1
    `
	var s model.Subscriber
	err := r.DB.QueryRow(query, NormalizeEmail(email)).Scan(&s.ID, &s.Email, &s.Verified, &s.UnsubscribedAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
