package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

const documentColumns = `id, process_id, type, status, file_ref, file_name, mime_type, size_bytes,
       uploaded_by_id, verified_by_id, rejected_by_id, rejection_reason, reviewed_at, created_at`

// DocumentRepository persists process documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores metadata for accepted bytes.
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (` + documentColumns + `)
	VALUES (:id, :process_id, :type, :status, :file_ref, :file_name, :mime_type, :size_bytes,
	        :uploaded_by_id, :verified_by_id, :rejected_by_id, :rejection_reason, :reviewed_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, d); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID returns a document of the given process or sql.ErrNoRows.
func (r *DocumentRepository) GetByID(ctx context.Context, processID, id string) (*models.Document, error) {
	var d models.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND process_id = $2`
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &d, query, id, processID); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByProcess returns the documents of a process, newest first.
func (r *DocumentRepository) ListByProcess(ctx context.Context, processID string) ([]models.Document, error) {
	var docs []models.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE process_id = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &docs, query, processID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// UpdateReview persists a review decision.
func (r *DocumentRepository) UpdateReview(ctx context.Context, d *models.Document) error {
	const query = `UPDATE documents SET status = :status, verified_by_id = :verified_by_id,
	rejected_by_id = :rejected_by_id, rejection_reason = :rejection_reason, reviewed_at = :reviewed_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, d)
	if err != nil {
		return fmt.Errorf("update document review: %w", err)
	}
	return requireAffected(res, "update document review")
}
