package models

import "time"

// NotInformed is the placeholder stored in required company columns until the client supplies them.
const NotInformed = "not informed"

// Client is the person a process is opened for.
type Client struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	TaxID     *string   `db:"tax_id" json:"taxId,omitempty"`
	Source    Source    `db:"source" json:"source"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Company is the business entity attached to a process. It is created lazily on first field write.
type Company struct {
	ID            string    `db:"id" json:"id"`
	ProcessID     string    `db:"process_id" json:"processId"`
	LegalName     string    `db:"legal_name" json:"legalName"`
	TradeName     string    `db:"trade_name" json:"tradeName"`
	RegistryID    *string   `db:"registry_id" json:"registryId,omitempty"`
	MainActivity  string    `db:"main_activity" json:"mainActivity"`
	ShareCapital  *float64  `db:"share_capital" json:"shareCapital,omitempty"`
	AddressStreet *string   `db:"address_street" json:"addressStreet,omitempty"`
	AddressCity   *string   `db:"address_city" json:"addressCity,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// NewPlaceholderCompany returns a company carrying the placeholder defaults for required columns.
func NewPlaceholderCompany(processID string) *Company {
	return &Company{
		ProcessID:    processID,
		LegalName:    NotInformed,
		TradeName:    NotInformed,
		MainActivity: NotInformed,
	}
}

// EntityKind names a process sub-entity that accepts single-field updates.
type EntityKind string

const (
	EntityClient  EntityKind = "client"
	EntityCompany EntityKind = "company"
)
