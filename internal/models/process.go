package models

import (
	"time"

	"github.com/lib/pq"
)

// ProcessType is fixed when a case is opened.
type ProcessType string

const (
	ProcessTypeOpening    ProcessType = "OPENING"
	ProcessTypeAlteration ProcessType = "ALTERATION"
	ProcessTypeClosure    ProcessType = "CLOSURE"
)

// Valid reports whether t is a known process type.
func (t ProcessType) Valid() bool {
	switch t {
	case ProcessTypeOpening, ProcessTypeAlteration, ProcessTypeClosure:
		return true
	}
	return false
}

// ProcessStatus is the lifecycle state of a case.
type ProcessStatus string

const (
	ProcessStatusCreated          ProcessStatus = "CREATED"
	ProcessStatusAnalyzingData    ProcessStatus = "ANALYZING_DATA"
	ProcessStatusPendingData      ProcessStatus = "PENDING_DATA"
	ProcessStatusPendingCompany   ProcessStatus = "PENDING_COMPANY"
	ProcessStatusPendingDocs      ProcessStatus = "PENDING_DOCS"
	ProcessStatusDocsSent         ProcessStatus = "DOCS_SENT"
	ProcessStatusInAnalysis       ProcessStatus = "IN_ANALYSIS"
	ProcessStatusRegistryPending  ProcessStatus = "REGISTRY_PENDING"
	ProcessStatusUnderReview      ProcessStatus = "UNDER_REVIEW"
	ProcessStatusPendingSignature ProcessStatus = "PENDING_SIGNATURE"
	ProcessStatusApproved         ProcessStatus = "APPROVED"
	ProcessStatusCompleted        ProcessStatus = "COMPLETED"
	ProcessStatusOnHold           ProcessStatus = "ON_HOLD"
	ProcessStatusWaitingClient    ProcessStatus = "WAITING_CLIENT"
	ProcessStatusCancelled        ProcessStatus = "CANCELLED"
	ProcessStatusRejected         ProcessStatus = "REJECTED"
	ProcessStatusAwaitingPayment  ProcessStatus = "AWAITING_PAYMENT"
	ProcessStatusPaymentPending   ProcessStatus = "PAYMENT_PENDING"
	ProcessStatusPaymentConfirmed ProcessStatus = "PAYMENT_CONFIRMED"
	ProcessStatusPaymentFailed    ProcessStatus = "PAYMENT_FAILED"
)

var knownStatuses = map[ProcessStatus]struct{}{
	ProcessStatusCreated: {}, ProcessStatusAnalyzingData: {}, ProcessStatusPendingData: {},
	ProcessStatusPendingCompany: {}, ProcessStatusPendingDocs: {}, ProcessStatusDocsSent: {},
	ProcessStatusInAnalysis: {}, ProcessStatusRegistryPending: {}, ProcessStatusUnderReview: {},
	ProcessStatusPendingSignature: {}, ProcessStatusApproved: {}, ProcessStatusCompleted: {},
	ProcessStatusOnHold: {}, ProcessStatusWaitingClient: {}, ProcessStatusCancelled: {},
	ProcessStatusRejected: {}, ProcessStatusAwaitingPayment: {}, ProcessStatusPaymentPending: {},
	ProcessStatusPaymentConfirmed: {}, ProcessStatusPaymentFailed: {},
}

// Valid reports whether s belongs to the status vocabulary.
func (s ProcessStatus) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Terminal reports whether no further transition is allowed out of s.
func (s ProcessStatus) Terminal() bool {
	return s == ProcessStatusCompleted || s == ProcessStatusCancelled
}

// IsPayment reports whether s belongs to the payment sub-track.
func (s ProcessStatus) IsPayment() bool {
	switch s {
	case ProcessStatusAwaitingPayment, ProcessStatusPaymentPending, ProcessStatusPaymentConfirmed, ProcessStatusPaymentFailed:
		return true
	}
	return false
}

// TerminalStatuses lists statuses that no longer count towards operator load.
func TerminalStatuses() []string {
	return []string{string(ProcessStatusCompleted), string(ProcessStatusCancelled)}
}

// paymentTransitions holds the allowed moves inside the payment sub-track.
// Entering AWAITING_PAYMENT is allowed from any non-terminal status.
var paymentTransitions = map[ProcessStatus][]ProcessStatus{
	ProcessStatusAwaitingPayment: {ProcessStatusPaymentPending},
	ProcessStatusPaymentPending:  {ProcessStatusPaymentConfirmed, ProcessStatusPaymentFailed},
	ProcessStatusPaymentFailed:   {ProcessStatusPaymentPending},
}

// CanEnterPayment reports whether a process in from may move to the payment status to.
func CanEnterPayment(from, to ProcessStatus) bool {
	if from.Terminal() || !to.IsPayment() {
		return false
	}
	if to == ProcessStatusAwaitingPayment {
		return from != ProcessStatusAwaitingPayment
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ProcessPriority orders work queues.
type ProcessPriority string

const (
	PriorityHigh   ProcessPriority = "HIGH"
	PriorityMedium ProcessPriority = "MEDIUM"
	PriorityLow    ProcessPriority = "LOW"
)

// Valid reports whether p is a known priority.
func (p ProcessPriority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Source identifies which channel produced a process or an event.
type Source string

const (
	SourceManual   Source = "MANUAL"
	SourceBot      Source = "BOT"
	SourceSystem   Source = "SYSTEM"
	SourcePlatform Source = "PLATFORM"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceBot, SourceSystem, SourcePlatform:
		return true
	}
	return false
}

// Payment groups the pass-through payment fields.
type Payment struct {
	Amount      *float64   `db:"payment_amount" json:"amount,omitempty"`
	Method      *string    `db:"payment_method" json:"method,omitempty"`
	Reference   *string    `db:"payment_reference" json:"reference,omitempty"`
	ConfirmedAt *time.Time `db:"payment_confirmed_at" json:"confirmedAt,omitempty"`
}

// Process is a tracked business case.
type Process struct {
	ID                 string          `db:"id" json:"id"`
	ClientID           *string         `db:"client_id" json:"clientId,omitempty"`
	Type               ProcessType     `db:"type" json:"type"`
	Status             ProcessStatus   `db:"status" json:"status"`
	Progress           int             `db:"progress" json:"progress"`
	Priority           ProcessPriority `db:"priority" json:"priority"`
	Source             Source          `db:"source" json:"source"`
	AssignedOperatorID *string         `db:"assigned_operator_id" json:"assignedOperatorId,omitempty"`
	PendingDataItems   pq.StringArray  `db:"pending_data_items" json:"pendingDataItems"`
	Payment
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
	LastInteractionAt *time.Time `db:"last_interaction_at" json:"lastInteractionAt,omitempty"`
}

// HasOwner reports whether an operator is assigned.
func (p *Process) HasOwner() bool {
	return p != nil && p.AssignedOperatorID != nil && *p.AssignedOperatorID != ""
}

// OwnerID returns the assigned operator or an empty string.
func (p *Process) OwnerID() string {
	if !p.HasOwner() {
		return ""
	}
	return *p.AssignedOperatorID
}

// ProcessFilter constrains listing queries used by the bot channel and bulk tooling.
type ProcessFilter struct {
	IDs        []string
	ClientID   string
	OperatorID string
	Statuses   []ProcessStatus
	Limit      int // ignored when IDs is set
}
