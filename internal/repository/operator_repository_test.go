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

var operatorRowColumns = []string{"id", "name", "email", "role", "status", "created_at", "processes_count"}

func TestOperatorRepositoryGetByIDComputesLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOperatorRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM processes p")).
		WithArgs(sqlmock.AnyArg(), "op-a").
		WillReturnRows(sqlmock.NewRows(operatorRowColumns).AddRow("op-a", "Ana", "ana@example.com", "OPERATOR", "ACTIVE", time.Now(), 1))

	op, err := repo.GetByID(context.Background(), "op-a")
	require.NoError(t, err)
	assert.Equal(t, 1, op.ProcessesCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRepositoryListOrdersByLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOperatorRepository(db)
	mock.ExpectQuery(`WHERE o.role = \$2 AND o.status = \$3 ORDER BY processes_count ASC, o.id ASC`).
		WithArgs(sqlmock.AnyArg(), models.RoleOperator, models.OperatorStatusActive).
		WillReturnRows(sqlmock.NewRows(operatorRowColumns).
			AddRow("op-b", "Bia", "bia@example.com", "OPERATOR", "ACTIVE", time.Now(), 0).
			AddRow("op-a", "Ana", "ana@example.com", "OPERATOR", "ACTIVE", time.Now(), 2))

	ops, err := repo.List(context.Background(), OperatorFilter{Role: models.RoleOperator, Status: models.OperatorStatusActive})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "op-b", ops[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
