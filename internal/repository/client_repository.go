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

const clientColumns = `id, name, phone, email, tax_id, source, created_at, updated_at`

// clientColumnsWritable is the closed set of columns UpdateColumn may touch.
var clientColumnsWritable = map[string]struct{}{
	"name": {}, "phone": {}, "email": {}, "tax_id": {},
}

// ClientRepository persists clients.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs the repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a client row.
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	const query = `INSERT INTO clients (` + clientColumns + `)
	VALUES (:id, :name, :phone, :email, :tax_id, :source, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, c); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetByID returns a client or sql.ErrNoRows.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &c, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByPhone looks a client up by normalized phone digits.
func (r *ClientRepository) GetByPhone(ctx context.Context, phone string) (*models.Client, error) {
	var c models.Client
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &c, `SELECT `+clientColumns+` FROM clients WHERE phone = $1`, phone); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateColumn writes one whitelisted column.
func (r *ClientRepository) UpdateColumn(ctx context.Context, id, column string, value interface{}) error {
	if _, ok := clientColumnsWritable[column]; !ok {
		return fmt.Errorf("client column %q is not writable", column)
	}
	query := fmt.Sprintf(`UPDATE clients SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update client %s: %w", column, err)
	}
	return requireAffected(res, "update client")
}
