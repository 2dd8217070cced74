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

const companyColumns = `id, process_id, legal_name, trade_name, registry_id, main_activity, share_capital,
       address_street, address_city, created_at, updated_at`

var companyColumnsWritable = map[string]struct{}{
	"legal_name": {}, "trade_name": {}, "registry_id": {}, "main_activity": {},
	"share_capital": {}, "address_street": {}, "address_city": {},
}

// CompanyRepository persists the company attached to a process.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs the repository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create inserts a company row.
func (r *CompanyRepository) Create(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	const query = `INSERT INTO companies (` + companyColumns + `)
	VALUES (:id, :process_id, :legal_name, :trade_name, :registry_id, :main_activity, :share_capital,
	        :address_street, :address_city, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, c); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// GetByProcessID returns the company of a process or sql.ErrNoRows.
func (r *CompanyRepository) GetByProcessID(ctx context.Context, processID string) (*models.Company, error) {
	var c models.Company
	query := `SELECT ` + companyColumns + ` FROM companies WHERE process_id = $1`
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &c, query, processID); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateColumn writes one whitelisted column.
func (r *CompanyRepository) UpdateColumn(ctx context.Context, id, column string, value interface{}) error {
	if _, ok := companyColumnsWritable[column]; !ok {
		return fmt.Errorf("company column %q is not writable", column)
	}
	query := fmt.Sprintf(`UPDATE companies SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update company %s: %w", column, err)
	}
	return requireAffected(res, "update company")
}
