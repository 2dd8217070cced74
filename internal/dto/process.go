package dto

import "github.com/noah-isme/casetrack-api/internal/models"

// CreateProcessRequest opens a new case for an existing client.
type CreateProcessRequest struct {
	ClientID string                 `json:"clientId" validate:"required"`
	Type     models.ProcessType     `json:"type" validate:"required,oneof=OPENING ALTERATION CLOSURE"`
	Priority models.ProcessPriority `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Source   models.Source          `json:"source" validate:"omitempty,oneof=MANUAL BOT SYSTEM PLATFORM"`
}

// StepData carries the checklist reviewed during a step.
type StepData struct {
	CheckedItems []string `json:"checkedItems"`
	Notes        string   `json:"notes"`
}

// AdvanceStepRequest moves a process through the fixed step table.
type AdvanceStepRequest struct {
	Step string   `json:"step" validate:"required"`
	Data StepData `json:"data"`
}

// UpdatePendingDataRequest overwrites the pending requirement set.
type UpdatePendingDataRequest struct {
	PendingItems   []string             `json:"pendingItems"`
	PreviousItems  []string             `json:"previousItems"`
	PreviousStatus models.ProcessStatus `json:"previousStatus"`
}

// UpdateFieldRequest targets one whitelisted field of a client or company.
type UpdateFieldRequest struct {
	Field string  `json:"field" validate:"required"`
	Value *string `json:"value"`
}

// PaymentRequest records an externally reported payment state.
type PaymentRequest struct {
	Status    models.ProcessStatus `json:"status" validate:"required"`
	Amount    *float64             `json:"amount" validate:"omitempty,gte=0"`
	Method    *string              `json:"method"`
	Reference *string              `json:"reference"`
}

// StatusChangeRequest is used by administrative transitions.
type StatusChangeRequest struct {
	Status models.ProcessStatus `json:"status"`
	Reason string               `json:"reason"`
}
