package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var processRowColumns = []string{"id", "client_id", "type", "status", "progress", "priority", "source", "assigned_operator_id",
	"pending_data_items", "payment_amount", "payment_method", "payment_reference", "payment_confirmed_at",
	"created_at", "updated_at", "last_interaction_at"}

func TestProcessRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.Process{Type: models.ProcessTypeOpening, Status: models.ProcessStatusCreated, Priority: models.PriorityMedium, Source: models.SourceManual}
	require.NoError(t, repo.Create(context.Background(), p))
	require.NotEmpty(t, p.ID)
	require.NotNil(t, p.PendingDataItems)

	now := time.Now()
	rows := sqlmock.NewRows(processRowColumns).
		AddRow(p.ID, nil, "OPENING", "CREATED", 0, "MEDIUM", "MANUAL", "op-1", "{RG,CPF}", nil, nil, nil, nil, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, client_id, type, status")).
		WithArgs(p.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusCreated, found.Status)
	assert.Equal(t, "op-1", found.OwnerID())
	assert.Equal(t, []string{"RG", "CPF"}, []string(found.PendingDataItems))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryAssignIfUnowned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE processes SET assigned_operator_id = $2")).
		WithArgs("proc-1", "op-a", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE processes SET assigned_operator_id = $2")).
		WithArgs("proc-1", "op-b", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.AssignIfUnowned(context.Background(), "proc-1", "op-a", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AssignIfUnowned(context.Background(), "proc-1", "op-b", at)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryUpdateStateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE processes SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), &models.Process{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryBulkAssignJoinsTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE processes SET assigned_operator_id = \$1(.|\n)*AND assigned_operator_id IS DISTINCT FROM \$1 RETURNING id`).
		WithArgs("op-b", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("proc-1").AddRow("proc-2"))
	mock.ExpectCommit()

	var changed []string
	err := database.NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		var err error
		changed, err = repo.BulkAssign(ctx, []string{"proc-1", "proc-2", "proc-3"}, "op-b", time.Now())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"proc-1", "proc-2"}, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(processRowColumns).
		AddRow("proc-1", "client-1", "OPENING", "PENDING_DOCS", 40, "HIGH", "BOT", nil, "{}", nil, nil, nil, nil, now, now, nil)
	mock.ExpectQuery(`SELECT id, client_id(.|\n)*WHERE client_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs("client-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), models.ProcessFilter{
		ClientID: "client-1",
		Statuses: []models.ProcessStatus{models.ProcessStatusPendingDocs},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.SourceBot, items[0].Source)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryListByIDsReturnsEveryRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	now := time.Now()
	ids := make([]string, 600)
	rows := sqlmock.NewRows(processRowColumns)
	for i := range ids {
		ids[i] = fmt.Sprintf("proc-%d", i)
		rows.AddRow(ids[i], nil, "OPENING", "NEW", 0, "MEDIUM", "PANEL", nil, "{}", nil, nil, nil, nil, now, now, nil)
	}
	mock.ExpectQuery(`WHERE id = ANY\(\$1\) ORDER BY created_at DESC LIMIT 600$`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), models.ProcessFilter{IDs: ids, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, items, 600)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepositoryListDefaultLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProcessRepository(db)
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT 100$`).
		WillReturnRows(sqlmock.NewRows(processRowColumns))

	_, err := repo.List(context.Background(), models.ProcessFilter{Limit: 5000})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
