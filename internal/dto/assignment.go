package dto

import "github.com/noah-isme/casetrack-api/internal/models"

// AssignRequest binds a process to an operator.
type AssignRequest struct {
	OperatorID string `json:"operatorId" validate:"required"`
}

// BulkReassignRequest moves many processes to one operator.
type BulkReassignRequest struct {
	ProcessIDs []string `json:"processIds" validate:"required,min=1,dive,required"`
	OperatorID string   `json:"operatorId" validate:"required"`
}

// BulkPriorityRequest changes the priority of many processes.
type BulkPriorityRequest struct {
	ProcessIDs []string               `json:"processIds" validate:"required,min=1,dive,required"`
	Priority   models.ProcessPriority `json:"priority" validate:"required,oneof=HIGH MEDIUM LOW"`
}

// BulkStatusRequest forces a status on many processes.
type BulkStatusRequest struct {
	ProcessIDs []string             `json:"processIds" validate:"required,min=1,dive,required"`
	Status     models.ProcessStatus `json:"status" validate:"required"`
	Reason     string               `json:"reason"`
}

// BulkResult summarises a batch.
type BulkResult struct {
	Updated    int      `json:"updated"`
	ProcessIDs []string `json:"processIds"`
	Skipped    []string `json:"skipped,omitempty"`
}
