package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casetrack-api/internal/models"
)

func TestDocumentRepositoryGetScopedToProcess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1 AND process_id = $2")).
		WithArgs("doc-1", "proc-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "proc-2", "doc-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateReview(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reviewer := "op-1"
	require.NoError(t, repo.UpdateReview(context.Background(), &models.Document{ID: "doc-1", Status: models.DocumentStatusVerified, VerifiedByID: &reviewer}))
	require.NoError(t, mock.ExpectationsWereMet())
}
