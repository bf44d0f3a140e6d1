// internal/model/subscriber.go
package model

import "time"

// Subscriber is a newsletter recipient. Only verified subscribers with no
// unsubscribed_at are eligible for fan-out. Rows are never deleted; an
// unsubscribe sets unsubscribed_at and clears verified.
type Subscriber struct {
	ID             int        `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Verified       bool       `db:"verified" json:"verified"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
