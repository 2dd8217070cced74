package models

import "time"

// OperatorRole is the coarse permission level of staff.
type OperatorRole string

const (
	RoleAdmin    OperatorRole = "ADMIN"
	RoleOperator OperatorRole = "OPERATOR"
)

// Valid reports whether r is a known role.
func (r OperatorRole) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// OperatorStatus reports staff availability.
type OperatorStatus string

const (
	OperatorStatusActive   OperatorStatus = "ACTIVE"
	OperatorStatusAway     OperatorStatus = "AWAY"
	OperatorStatusBusy     OperatorStatus = "BUSY"
	OperatorStatusInactive OperatorStatus = "INACTIVE"
)

// Operator is a staff member that can own processes.
type Operator struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Role      OperatorRole   `db:"role" json:"role"`
	Status    OperatorStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	// ProcessesCount is computed from non-terminal assigned processes at read time.
	ProcessesCount int `db:"processes_count" json:"processesCount"`
}
