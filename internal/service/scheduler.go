// internal/service/scheduler.go
package service

import (
	"time"

	"github.com/lostandunfounds/newsletter-backend/internal/model"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
)

// IsDue is the whole of the scheduling logic: a scheduled campaign whose
// schedule time has arrived may be dispatched. The clock belongs to the
// caller; the worker's poll loop invokes Dispatch once this holds.
func IsDue(c *model.Campaign, now time.Time) bool {
	return c.Status == model.CampaignScheduled &&
		c.ScheduledFor != nil &&
		!now.Before(*c.ScheduledFor)
}

// Scheduler finds campaigns whose schedule time has arrived.
type Scheduler struct {
	Campaigns repository.CampaignRepositoryInterface
	Now       func() time.Time
}

func NewScheduler(campaigns repository.CampaignRepositoryInterface) *Scheduler {
	return &Scheduler{Campaigns: campaigns, Now: time.Now}
}

// Due returns up to limit due campaigns, oldest schedule first.
func (s *Scheduler) Due(limit int) ([]*model.Campaign, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Campaigns.ListDue(s.Now(), limit)
}
