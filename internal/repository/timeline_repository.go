package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

const timelineColumns = `id, process_id, title, description, type, category, action_type, source, operator_id, metadata, created_at`

// TimelineRepository is append only: no update or delete exists.
type TimelineRepository struct {
	db *sqlx.DB
}

// NewTimelineRepository constructs the repository.
func NewTimelineRepository(db *sqlx.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Create appends one event.
func (r *TimelineRepository) Create(ctx context.Context, e *models.TimelineEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timeline_events (` + timelineColumns + `)
	VALUES (:id, :process_id, :title, :description, :type, :category, :action_type, :source, :operator_id, :metadata, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, e); err != nil {
		return fmt.Errorf("create timeline event: %w", err)
	}
	return nil
}

// List returns events matching the filter, oldest first.
func (r *TimelineRepository) List(ctx context.Context, filter models.TimelineFilter) ([]models.TimelineEvent, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + timelineColumns + ` FROM timeline_events`)
	args := make([]interface{}, 0, 5)
	conditions := make([]string, 0, 5)

	if filter.ProcessID != "" {
		args = append(args, filter.ProcessID)
		conditions = append(conditions, fmt.Sprintf("process_id = $%d", len(args)))
	}
	if filter.OperatorID != "" {
		args = append(args, filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("operator_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC, id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var events []models.TimelineEvent
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &events, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	return events, nil
}
