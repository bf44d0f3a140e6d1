package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/model"
)

func newSendLogRepoMock(t *testing.T) (*SendLogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &SendLogRepository{DB: db}, mock
}

func sendLogRows(logs ...model.SendLog) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "subscriber_email", "status", "error_message", "sent_at", "created_at", "updated_at",
	})
	for _, l := range logs {
		rows.AddRow(l.ID, l.CampaignID, l.SubscriberEmail, l.Status, l.ErrorMessage, l.SentAt, l.CreatedAt, l.UpdatedAt)
	}
	return rows
}

func TestUpsertPendingNormalizesAddress(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)

	mock.ExpectExec(`INSERT INTO newsletter_send_logs .+ ON CONFLICT \(campaign_id, subscriber_email\) DO NOTHING`).
		WithArgs("c1", "a@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpsertPending("c1", "  A@Example.COM "))
}

func TestUpsertPendingExistingRowIsNoOp(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)

	// ON CONFLICT DO NOTHING reports zero rows; that is success, not an error.
	mock.ExpectExec(`INSERT INTO newsletter_send_logs`).
		WithArgs("c1", "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpsertPending("c1", "a@example.com"))
}

func TestRecordOutcomeSent(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)

	mock.ExpectExec(`UPDATE newsletter_send_logs\s+SET status=\$1, error_message=NULLIF\(\$2, ''\), sent_at=\$3`).
		WithArgs(model.SendSent, "", sqlmock.AnyArg(), "c1", "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordOutcome("c1", "a@example.com", model.SendSent, ""))
}

func TestRecordOutcomeMissingRowIsNotFound(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)

	mock.ExpectExec(`UPDATE newsletter_send_logs`).
		WithArgs(model.SendFailed, "bounced", nil, "c1", "ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordOutcome("c1", "ghost@example.com", model.SendFailed, "bounced")
	var notFound *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "send log", notFound.Resource)
}

func TestListFailedWithoutFilter(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE campaign_id=\$1 AND status='failed'\s+ORDER BY subscriber_email`).
		WithArgs("c1").
		WillReturnRows(sendLogRows(
			model.SendLog{ID: 1, CampaignID: "c1", SubscriberEmail: "a@example.com", Status: model.SendFailed, ErrorMessage: "bounced", CreatedAt: now, UpdatedAt: now},
		))

	logs, err := repo.ListFailed("c1", nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a@example.com", logs[0].SubscriberEmail)
}

func TestListFailedWithAddressSubset(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)
	now := time.Now()

	mock.ExpectQuery(`AND subscriber_email = ANY\(\$2\)`).
		WithArgs("c1", pq.Array([]string{"a@example.com", "b@example.com"})).
		WillReturnRows(sendLogRows(
			model.SendLog{ID: 1, CampaignID: "c1", SubscriberEmail: "a@example.com", Status: model.SendFailed, CreatedAt: now, UpdatedAt: now},
		))

	// Input addresses are normalized before they reach the query.
	logs, err := repo.ListFailed("c1", []string{"A@Example.com", " b@example.com"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestCountByStatusSeedsZeroes(t *testing.T) {
	repo, mock := newSendLogRepoMock(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM newsletter_send_logs WHERE campaign_id=\$1 GROUP BY status`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("sent", 4))

	counts, err := repo.CountByStatus("c1")
	require.NoError(t, err)
	assert.Equal(t, 4, counts[model.SendSent])
	assert.Equal(t, 0, counts[model.SendFailed])
	assert.Equal(t, 0, counts[model.SendPending])
}
