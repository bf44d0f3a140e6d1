// internal/service/campaign_service.go
package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
)

// CampaignService handles campaign CRUD and validation. Send and retry
// passes belong to the Dispatcher.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LogRepo      repository.SendLogRepositoryInterface
	Now          func() time.Time
}

func NewCampaignService(campaigns repository.CampaignRepositoryInterface, logs repository.SendLogRepositoryInterface) *CampaignService {
	return &CampaignService{CampaignRepo: campaigns, LogRepo: logs, Now: time.Now}
}

type CreateCampaignInput struct {
	Subject      string  `json:"subject"`
	Content      string  `json:"content"`
	ContentHTML  string  `json:"content_html"`
	ScheduledFor *string `json:"scheduled_for,omitempty"`
}

// CreateCampaign validates input and persists a new campaign. A schedule
// time puts it straight into scheduled status; it must be strictly in the
// future.
func (s *CampaignService) CreateCampaign(input CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidation("subject", "must not be empty")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperrors.NewValidation("content", "must not be empty")
	}
	if strings.TrimSpace(input.ContentHTML) == "" {
		return nil, apperrors.NewValidation("content_html", "must not be empty")
	}

	c := &model.Campaign{
		ID:          uuid.New().String(),
		Subject:     input.Subject,
		Content:     input.Content,
		ContentHTML: input.ContentHTML,
		Status:      model.CampaignDraft,
	}

	if input.ScheduledFor != nil && strings.TrimSpace(*input.ScheduledFor) != "" {
		t, err := time.Parse(time.RFC3339, *input.ScheduledFor)
		if err != nil {
			return nil, apperrors.NewValidation("scheduled_for", "must be an RFC 3339 timestamp")
		}
		if !t.After(s.Now()) {
			return nil, apperrors.NewValidation("scheduled_for", "must be in the future")
		}
		c.ScheduledFor = &t
		c.Status = model.CampaignScheduled
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination.
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.List(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// CampaignDetails is a campaign plus its per-status delivery counts.
type CampaignDetails struct {
	model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) GetCampaignDetails(id string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	counts, err := s.LogRepo.CountByStatus(id)
	if err != nil {
		return nil, err
	}

	stats := map[string]int{"total": 0}
	for status, n := range counts {
		stats[string(status)] = n
		stats["total"] += n
	}

	return &CampaignDetails{Campaign: *campaign, Stats: stats}, nil
}

// DeleteCampaign removes a campaign and, via the FK cascade, its send
// logs. A campaign mid-pass cannot be deleted.
func (s *CampaignService) DeleteCampaign(id string) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status == model.CampaignSending {
		return &apperrors.ConflictError{CampaignID: id, Reason: "cannot delete while a send pass is in progress"}
	}
	return s.CampaignRepo.Delete(id)
}

// Recount resynchronizes the cached counters with the send log. Meant for
// operator recovery after a crash mid-pass; the log is authoritative.
func (s *CampaignService) Recount(id string) (*model.Campaign, error) {
	return s.CampaignRepo.Recount(id)
}

// Transition applies an explicit status change, enforcing the state
// machine. Used by the worker to claim due campaigns and by operator
// tooling; the Dispatcher drives its own transitions.
func (s *CampaignService) Transition(id string, to model.CampaignStatus) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if !model.CanTransition(campaign.Status, to) {
		return &apperrors.InvalidTransitionError{From: string(campaign.Status), To: string(to)}
	}
	return s.CampaignRepo.UpdateStatus(id, to)
}
