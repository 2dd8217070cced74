package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

const processColumns = `id, client_id, type, status, progress, priority, source, assigned_operator_id,
       pending_data_items, payment_amount, payment_method, payment_reference, payment_confirmed_at,
       created_at, updated_at, last_interaction_at`

// ProcessRepository persists processes. Every method joins the transaction carried by ctx.
type ProcessRepository struct {
	db *sqlx.DB
}

// NewProcessRepository constructs the repository.
func NewProcessRepository(db *sqlx.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// Create inserts a process row.
func (r *ProcessRepository) Create(ctx context.Context, p *models.Process) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	if p.PendingDataItems == nil {
		p.PendingDataItems = pq.StringArray{}
	}
	const query = `INSERT INTO processes (` + processColumns + `)
	VALUES (:id, :client_id, :type, :status, :progress, :priority, :source, :assigned_operator_id,
	        :pending_data_items, :payment_amount, :payment_method, :payment_reference, :payment_confirmed_at,
	        :created_at, :updated_at, :last_interaction_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, p); err != nil {
		return fmt.Errorf("create process: %w", err)
	}
	return nil
}

// GetByID returns a process or sql.ErrNoRows.
func (r *ProcessRepository) GetByID(ctx context.Context, id string) (*models.Process, error) {
	query := `SELECT ` + processColumns + ` FROM processes WHERE id = $1`
	var p models.Process
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns processes matching the filter ordered by creation time.
func (r *ProcessRepository) List(ctx context.Context, filter models.ProcessFilter) ([]models.Process, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + processColumns + ` FROM processes`)
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)

	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.OperatorID != "" {
		args = append(args, filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("assigned_operator_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	switch {
	case len(filter.IDs) > 0:
		limit = len(filter.IDs)
	case limit <= 0 || limit > 500:
		limit = 100
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var records []models.Process
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return records, nil
}

// UpdateState writes the lifecycle columns of p. Ownership is changed through the dedicated methods.
func (r *ProcessRepository) UpdateState(ctx context.Context, p *models.Process) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE processes SET status = :status, progress = :progress, priority = :priority,
	pending_data_items = :pending_data_items, payment_amount = :payment_amount, payment_method = :payment_method,
	payment_reference = :payment_reference, payment_confirmed_at = :payment_confirmed_at,
	updated_at = :updated_at, last_interaction_at = :last_interaction_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, p)
	if err != nil {
		return fmt.Errorf("update process state: %w", err)
	}
	return requireAffected(res, "update process state")
}

// AssignIfUnowned sets the owner only when none is present. It reports false when another owner holds the process.
func (r *ProcessRepository) AssignIfUnowned(ctx context.Context, id, operatorID string, at time.Time) (bool, error) {
	const query = `UPDATE processes SET assigned_operator_id = $2, updated_at = $3
	WHERE id = $1 AND assigned_operator_id IS NULL`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, operatorID, at)
	if err != nil {
		return false, fmt.Errorf("assign process: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check assign rows: %w", err)
	}
	return affected == 1, nil
}

// SetOwner overwrites the owner. A nil operatorID releases the process.
func (r *ProcessRepository) SetOwner(ctx context.Context, id string, operatorID *string, at time.Time) error {
	const query = `UPDATE processes SET assigned_operator_id = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, operatorID, at)
	if err != nil {
		return fmt.Errorf("set process owner: %w", err)
	}
	return requireAffected(res, "set process owner")
}

// SetClient links the process to a client created after the process.
func (r *ProcessRepository) SetClient(ctx context.Context, id, clientID string) error {
	const query = `UPDATE processes SET client_id = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, clientID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set process client: %w", err)
	}
	return requireAffected(res, "set process client")
}

// TouchInteraction stamps lastInteractionAt.
func (r *ProcessRepository) TouchInteraction(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE processes SET last_interaction_at = $2, updated_at = $2 WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("touch process: %w", err)
	}
	return requireAffected(res, "touch process")
}

// BulkAssign overwrites the owner of every non-terminal process in ids and returns the ids that changed.
// Processes already owned by operatorID are left untouched.
func (r *ProcessRepository) BulkAssign(ctx context.Context, ids []string, operatorID string, at time.Time) ([]string, error) {
	const query = `UPDATE processes SET assigned_operator_id = $1, updated_at = $2
	WHERE id = ANY($3) AND status <> ALL($4) AND assigned_operator_id IS DISTINCT FROM $1 RETURNING id`
	return r.bulkReturningIDs(ctx, "bulk assign", query, operatorID, at, pq.Array(ids), pq.Array(models.TerminalStatuses()))
}

// BulkUpdatePriority sets priority on every non-terminal process in ids.
func (r *ProcessRepository) BulkUpdatePriority(ctx context.Context, ids []string, priority models.ProcessPriority, at time.Time) ([]string, error) {
	const query = `UPDATE processes SET priority = $1, updated_at = $2
	WHERE id = ANY($3) AND status <> ALL($4) RETURNING id`
	return r.bulkReturningIDs(ctx, "bulk priority", query, priority, at, pq.Array(ids), pq.Array(models.TerminalStatuses()))
}

// BulkUpdateStatus forces status on every non-terminal process in ids.
func (r *ProcessRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.ProcessStatus, at time.Time) ([]string, error) {
	const query = `UPDATE processes SET status = $1, updated_at = $2
	WHERE id = ANY($3) AND status <> ALL($4) RETURNING id`
	return r.bulkReturningIDs(ctx, "bulk status", query, status, at, pq.Array(ids), pq.Array(models.TerminalStatuses()))
}

func (r *ProcessRepository) bulkReturningIDs(ctx context.Context, op, query string, args ...interface{}) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &ids, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
