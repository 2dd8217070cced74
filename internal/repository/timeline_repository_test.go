package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casetrack-api/internal/models"
)

func TestTimelineRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimelineRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timeline_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event, err := models.NewTimelineEvent("proc-1", "Process started", "", models.EventTypeInfo, models.SourceSystem, nil,
		models.StatusChangeMetadata{ActionType: models.ActionProcessStarted, PreviousStatus: models.ProcessStatusCreated, NewStatus: models.ProcessStatusAnalyzingData})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.CategoryStatus, event.Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepositoryListWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimelineRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE operator_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at ASC")).
		WithArgs("op-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "process_id", "title", "description", "type", "category", "action_type", "source", "operator_id", "metadata", "created_at"}).
			AddRow("ev-1", "proc-1", "Operator assigned", "", "INFO", "UPDATEFIELD", "OPERATOR_ASSIGNED", "MANUAL", "op-1", []byte(`{"actionType":"OPERATOR_ASSIGNED"}`), from))

	events, err := repo.List(context.Background(), models.TimelineFilter{OperatorID: "op-1", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, events, 1)
	meta, err := events[0].DecodeMetadata()
	require.NoError(t, err)
	assert.Equal(t, models.ActionOperatorAssigned, meta.Action())
	require.NoError(t, mock.ExpectationsWereMet())
}
