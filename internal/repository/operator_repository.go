package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

// processes_count is derived from live assignments so it cannot drift.
const operatorSelect = `SELECT o.id, o.name, o.email, o.role, o.status, o.created_at,
       (SELECT COUNT(*) FROM processes p
         WHERE p.assigned_operator_id = o.id AND p.status <> ALL($1)) AS processes_count
FROM operators o`

// OperatorFilter narrows operator listings.
type OperatorFilter struct {
	Role   models.OperatorRole
	Status models.OperatorStatus
}

// OperatorRepository reads operators together with their computed load.
type OperatorRepository struct {
	db *sqlx.DB
}

// NewOperatorRepository constructs the repository.
func NewOperatorRepository(db *sqlx.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// GetByID returns an operator or sql.ErrNoRows.
func (r *OperatorRepository) GetByID(ctx context.Context, id string) (*models.Operator, error) {
	var op models.Operator
	query := operatorSelect + ` WHERE o.id = $2`
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &op, query, pq.Array(models.TerminalStatuses()), id); err != nil {
		return nil, err
	}
	return &op, nil
}

// List returns operators ordered by load then id.
func (r *OperatorRepository) List(ctx context.Context, filter OperatorFilter) ([]models.Operator, error) {
	builder := strings.Builder{}
	builder.WriteString(operatorSelect)
	args := []interface{}{pq.Array(models.TerminalStatuses())}
	conditions := make([]string, 0, 2)
	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("o.role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY processes_count ASC, o.id ASC")

	var operators []models.Operator
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &operators, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return operators, nil
}
