package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
	"github.com/lostandunfounds/newsletter-backend/internal/service"
)

func newCampaignService() (*service.CampaignService, *memCampaignRepo, *memLogRepo) {
	logs := newMemLogRepo()
	campaigns := newMemCampaignRepo(logs)
	return service.NewCampaignService(campaigns, logs), campaigns, logs
}

func validInput() service.CreateCampaignInput {
	return service.CreateCampaignInput{
		Subject:     "Weekly digest",
		Content:     "plain body",
		ContentHTML: "<p>body</p>",
	}
}

func TestCreateCampaignDraft(t *testing.T) {
	svc, repo, _ := newCampaignService()

	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.CampaignDraft, c.Status)
	assert.Nil(t, c.ScheduledFor)

	stored, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly digest", stored.Subject)
}

func TestCreateCampaignValidation(t *testing.T) {
	svc, _, _ := newCampaignService()

	cases := []struct {
		name   string
		mutate func(*service.CreateCampaignInput)
		field  string
	}{
		{"missing subject", func(in *service.CreateCampaignInput) { in.Subject = "  " }, "subject"},
		{"missing content", func(in *service.CreateCampaignInput) { in.Content = "" }, "content"},
		{"missing html", func(in *service.CreateCampaignInput) { in.ContentHTML = "" }, "content_html"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.CreateCampaign(in)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCreateCampaignScheduled(t *testing.T) {
	svc, _, _ := newCampaignService()
	svc.Now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

	when := "2026-01-11T09:00:00Z"
	in := validInput()
	in.ScheduledFor = &when

	c, err := svc.CreateCampaign(in)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignScheduled, c.Status)
	require.NotNil(t, c.ScheduledFor)
	assert.Equal(t, time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC), c.ScheduledFor.UTC())
}

func TestCreateCampaignRejectsPastSchedule(t *testing.T) {
	svc, _, _ := newCampaignService()
	svc.Now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

	for _, when := range []string{"2026-01-09T09:00:00Z", "2026-01-10T12:00:00Z"} {
		w := when
		in := validInput()
		in.ScheduledFor = &w
		_, err := svc.CreateCampaign(in)
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr, "scheduled_for %s should be rejected", when)
		assert.Equal(t, "scheduled_for", verr.Field)
	}
}

func TestCreateCampaignRejectsMalformedSchedule(t *testing.T) {
	svc, _, _ := newCampaignService()

	when := "tomorrow at noon"
	in := validInput()
	in.ScheduledFor = &when

	_, err := svc.CreateCampaign(in)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scheduled_for", verr.Field)
}

func TestListCampaignsPagination(t *testing.T) {
	svc, _, _ := newCampaignService()
	for i := 0; i < 5; i++ {
		_, err := svc.CreateCampaign(validInput())
		require.NoError(t, err)
	}

	campaigns, pagination, err := svc.ListCampaigns(1, 2, "")
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)
	assert.Equal(t, 5, pagination["total_count"])
	assert.Equal(t, 3, pagination["total_pages"])

	// Out-of-range inputs are clamped, not rejected.
	_, pagination, err = svc.ListCampaigns(-3, 500, "")
	require.NoError(t, err)
	assert.Equal(t, 1, pagination["page"])
	assert.Equal(t, 100, pagination["page_size"])
}

func TestGetCampaignDetailsIncludesLogStats(t *testing.T) {
	svc, _, logs := newCampaignService()
	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)

	require.NoError(t, logs.UpsertPending(c.ID, "a@example.com"))
	require.NoError(t, logs.RecordOutcome(c.ID, "a@example.com", model.SendSent, ""))
	require.NoError(t, logs.UpsertPending(c.ID, "b@example.com"))
	require.NoError(t, logs.RecordOutcome(c.ID, "b@example.com", model.SendFailed, "bounced"))

	details, err := svc.GetCampaignDetails(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, details.Stats["sent"])
	assert.Equal(t, 1, details.Stats["failed"])
	assert.Equal(t, 0, details.Stats["pending"])
	assert.Equal(t, 2, details.Stats["total"])
}

func TestGetCampaignDetailsNotFound(t *testing.T) {
	svc, _, _ := newCampaignService()

	_, err := svc.GetCampaignDetails("3b9f5f3a-0000-0000-0000-000000000000")
	var notFound *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteCampaignRefusedWhileSending(t *testing.T) {
	svc, repo, _ := newCampaignService()
	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(c.ID, model.CampaignSending))

	err = svc.DeleteCampaign(c.ID)
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = repo.GetByID(c.ID)
	assert.NoError(t, err)
}

func TestDeleteCampaignCascadesLogs(t *testing.T) {
	svc, repo, logs := newCampaignService()
	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(c.ID, model.CampaignSent))
	require.NoError(t, logs.UpsertPending(c.ID, "a@example.com"))

	require.NoError(t, svc.DeleteCampaign(c.ID))
	assert.Equal(t, 0, logs.rowCount(c.ID))
}

func TestTransitionEnforcesStateMachine(t *testing.T) {
	svc, repo, _ := newCampaignService()
	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Transition(c.ID, model.CampaignSending))

	err = svc.Transition(c.ID, model.CampaignDraft)
	var invalid *apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "sending", invalid.From)
	assert.Equal(t, "draft", invalid.To)

	got, _ := repo.GetByID(c.ID)
	assert.Equal(t, model.CampaignSending, got.Status)
}
