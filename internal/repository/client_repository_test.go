package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRepositoryUpdateColumnWhitelist(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClientRepository(db)
	err := repo.UpdateColumn(context.Background(), "client-1", "id", "hijack")
	require.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE clients SET email = $2")).
		WithArgs("client-1", "a@b.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateColumn(context.Background(), "client-1", "email", "a@b.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepositoryUpdateColumnWhitelist(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCompanyRepository(db)
	assert.Error(t, repo.UpdateColumn(context.Background(), "co-1", "process_id; DROP TABLE x", "v"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE companies SET trade_name = $2")).
		WithArgs("co-1", "Acme", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateColumn(context.Background(), "co-1", "trade_name", "Acme"))
	require.NoError(t, mock.ExpectationsWereMet())
}
