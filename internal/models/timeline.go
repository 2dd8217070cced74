package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType grades a timeline event.
type EventType string

const (
	EventTypeInfo    EventType = "INFO"
	EventTypeSuccess EventType = "SUCCESS"
	EventTypeWarning EventType = "WARNING"
	EventTypeError   EventType = "ERROR"
)

// EventCategory groups timeline events by the kind of mutation that produced them.
type EventCategory string

const (
	CategoryStatus      EventCategory = "STATUS"
	CategoryDocument    EventCategory = "DOCUMENT"
	CategoryData        EventCategory = "DATA"
	CategoryUpdateField EventCategory = "UPDATEFIELD"
	CategoryAnalysis    EventCategory = "ANALYSIS"
)

// ActionType identifies the metadata payload shape of an event.
type ActionType string

const (
	ActionProcessCreated   ActionType = "PROCESS_CREATED"
	ActionProcessStarted   ActionType = "PROCESS_STARTED"
	ActionStepAdvanced     ActionType = "STEP_ADVANCED"
	ActionStatusChanged    ActionType = "STATUS_CHANGED"
	ActionPaymentRecorded  ActionType = "PAYMENT_RECORDED"
	ActionPendingData      ActionType = "PENDING_DATA_UPDATED"
	ActionFieldUpdated     ActionType = "FIELD_UPDATED"
	ActionPriorityChanged  ActionType = "PRIORITY_CHANGED"
	ActionDocumentSent     ActionType = "DOCUMENT_SENT"
	ActionDocumentReviewed ActionType = "DOCUMENT_REVIEWED"
	ActionOperatorAssigned ActionType = "OPERATOR_ASSIGNED"
	ActionOperatorReleased ActionType = "OPERATOR_RELEASED"
	ActionStepChecklist    ActionType = "STEP_CHECKLIST"
)

// EventMetadata is the closed set of typed payloads a timeline event may carry.
type EventMetadata interface {
	Action() ActionType
	Category() EventCategory
}

// StatusChangeMetadata records a status/progress move.
type StatusChangeMetadata struct {
	ActionType       ActionType    `json:"actionType"`
	PreviousStatus   ProcessStatus `json:"previousStatus"`
	NewStatus        ProcessStatus `json:"newStatus"`
	PreviousProgress int           `json:"previousProgress"`
	NewProgress      int           `json:"newProgress"`
	StepID           string        `json:"stepId,omitempty"`
	CheckedItems     []string      `json:"checkedItems,omitempty"`
	Reason           string        `json:"reason,omitempty"`
	Bulk             bool          `json:"bulk,omitempty"`
}

func (m StatusChangeMetadata) Action() ActionType      { return m.ActionType }
func (m StatusChangeMetadata) Category() EventCategory { return CategoryStatus }

// PendingDataMetadata records a pending-data overwrite and its audit diff.
type PendingDataMetadata struct {
	PreviousStatus ProcessStatus `json:"previousStatus"`
	NewStatus      ProcessStatus `json:"newStatus"`
	Items          []string      `json:"items"`
	Added          []string      `json:"added"`
	Removed        []string      `json:"removed"`
}

func (m PendingDataMetadata) Action() ActionType      { return ActionPendingData }
func (m PendingDataMetadata) Category() EventCategory { return CategoryData }

// FieldUpdateMetadata records a single-field change on a process or its sub-entities.
type FieldUpdateMetadata struct {
	ActionType ActionType `json:"actionType"`
	Entity     string     `json:"entity"`
	Field      string     `json:"field"`
	OldValue   *string    `json:"oldValue"`
	NewValue   *string    `json:"newValue"`
	Created    bool       `json:"created,omitempty"`
	Bulk       bool       `json:"bulk,omitempty"`
}

func (m FieldUpdateMetadata) Action() ActionType      { return m.ActionType }
func (m FieldUpdateMetadata) Category() EventCategory { return CategoryUpdateField }

// DocumentMetadata records a document submission or review.
type DocumentMetadata struct {
	ActionType      ActionType     `json:"actionType"`
	DocumentID      string         `json:"documentId"`
	DocumentType    string         `json:"documentType"`
	PreviousStatus  DocumentStatus `json:"previousStatus,omitempty"`
	NewStatus       DocumentStatus `json:"newStatus"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	SizeBytes       int64          `json:"sizeBytes,omitempty"`
	ContentType     string         `json:"contentType,omitempty"`
}

func (m DocumentMetadata) Action() ActionType      { return m.ActionType }
func (m DocumentMetadata) Category() EventCategory { return CategoryDocument }

// AssignmentMetadata records an ownership change.
type AssignmentMetadata struct {
	ActionType         ActionType `json:"actionType"`
	PreviousOperatorID *string    `json:"previousOperatorId"`
	NewOperatorID      *string    `json:"newOperatorId"`
	Automatic          bool       `json:"automatic,omitempty"`
	Bulk               bool       `json:"bulk,omitempty"`
}

func (m AssignmentMetadata) Action() ActionType      { return m.ActionType }
func (m AssignmentMetadata) Category() EventCategory { return CategoryUpdateField }

// AnalysisMetadata records checklist results produced while reviewing a step.
type AnalysisMetadata struct {
	StepID       string   `json:"stepId"`
	CheckedItems []string `json:"checkedItems"`
	Notes        string   `json:"notes,omitempty"`
}

func (m AnalysisMetadata) Action() ActionType      { return ActionStepChecklist }
func (m AnalysisMetadata) Category() EventCategory { return CategoryAnalysis }

// TimelineEvent is an immutable audit record owned by a process.
type TimelineEvent struct {
	ID          string          `db:"id" json:"id"`
	ProcessID   string          `db:"process_id" json:"processId"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Type        EventType       `db:"type" json:"type"`
	Category    EventCategory   `db:"category" json:"category"`
	ActionType  ActionType      `db:"action_type" json:"actionType"`
	Source      Source          `db:"source" json:"source"`
	OperatorID  *string         `db:"operator_id" json:"operatorId,omitempty"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// NewTimelineEvent builds an event whose category and action are derived from meta.
func NewTimelineEvent(processID, title, description string, eventType EventType, source Source, operatorID *string, meta EventMetadata) (*TimelineEvent, error) {
	if meta == nil {
		return nil, fmt.Errorf("timeline event metadata is required")
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal timeline metadata: %w", err)
	}
	return &TimelineEvent{
		ProcessID:   processID,
		Title:       title,
		Description: description,
		Type:        eventType,
		Category:    meta.Category(),
		ActionType:  meta.Action(),
		Source:      source,
		OperatorID:  operatorID,
		Metadata:    raw,
	}, nil
}

// DecodeMetadata returns the typed payload for the event's action type.
func (e *TimelineEvent) DecodeMetadata() (EventMetadata, error) {
	var target EventMetadata
	switch e.ActionType {
	case ActionProcessCreated, ActionProcessStarted, ActionStepAdvanced, ActionStatusChanged, ActionPaymentRecorded:
		m := StatusChangeMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	case ActionPendingData:
		m := PendingDataMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	case ActionFieldUpdated, ActionPriorityChanged:
		m := FieldUpdateMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	case ActionDocumentSent, ActionDocumentReviewed:
		m := DocumentMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	case ActionOperatorAssigned, ActionOperatorReleased:
		m := AssignmentMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	case ActionStepChecklist:
		m := AnalysisMetadata{}
		if err := json.Unmarshal(e.Metadata, &m); err != nil {
			return nil, err
		}
		target = m
	default:
		return nil, fmt.Errorf("unknown timeline action type %q", e.ActionType)
	}
	return target, nil
}

// TimelineFilter scopes audit reads. At least one scope is required unless Unscoped is set.
type TimelineFilter struct {
	ProcessID  string
	OperatorID string
	From       *time.Time
	To         *time.Time
	Category   EventCategory
	Unscoped   bool
	Limit      int
	Offset     int
}

// Scoped reports whether the filter narrows by process, operator or time window.
func (f TimelineFilter) Scoped() bool {
	return f.ProcessID != "" || f.OperatorID != "" || (f.From != nil && f.To != nil)
}
