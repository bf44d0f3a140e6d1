// internal/service/log_service.go
package service

import (
	"github.com/lostandunfounds/newsletter-backend/internal/model"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
)

// LogService exposes the delivery log for inspection.
type LogService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LogRepo      repository.SendLogRepositoryInterface
}

// LogReport is the per-recipient delivery status for one campaign plus a
// count summary.
type LogReport struct {
	CampaignID string          `json:"campaign_id"`
	Logs       []model.SendLog `json:"logs"`
	Summary    LogSummary      `json:"summary"`
}

type LogSummary struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// CampaignLogs returns the campaign's log rows, optionally filtered by
// status. The summary always covers all rows, not just the filtered view.
func (s *LogService) CampaignLogs(campaignID, status string) (*LogReport, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}

	logs, err := s.LogRepo.ListByCampaign(campaignID, status)
	if err != nil {
		return nil, err
	}

	counts, err := s.LogRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	summary := LogSummary{
		Sent:    counts[model.SendSent],
		Failed:  counts[model.SendFailed],
		Pending: counts[model.SendPending],
	}
	summary.Total = summary.Sent + summary.Failed + summary.Pending

	return &LogReport{CampaignID: campaignID, Logs: logs, Summary: summary}, nil
}
