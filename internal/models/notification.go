package models

import (
	"encoding/json"
	"time"
)

// NotificationStatus tracks delivery of a notification row.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
)

// NotificationPriority mirrors the urgency shown to operators.
type NotificationPriority string

const (
	NotificationPriorityHigh   NotificationPriority = "HIGH"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityLow    NotificationPriority = "LOW"
)

// NotificationContext is the typed metadata carried by a notification.
type NotificationContext struct {
	ActionType ActionType    `json:"actionType"`
	Status     ProcessStatus `json:"status,omitempty"`
	DocumentID string        `json:"documentId,omitempty"`
	StepID     string        `json:"stepId,omitempty"`
	AdminQueue bool          `json:"adminQueue,omitempty"`
}

// Notification is a per-recipient message derived from a state change.
type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipientId"`
	ProcessID   *string              `db:"process_id" json:"processId,omitempty"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	Type        EventType            `db:"type" json:"type"`
	Category    EventCategory        `db:"category" json:"category"`
	Priority    NotificationPriority `db:"priority" json:"priority"`
	Status      NotificationStatus   `db:"status" json:"status"`
	Viewed      bool                 `db:"viewed" json:"viewed"`
	Metadata    json.RawMessage      `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
	ExpiresAt   *time.Time           `db:"expires_at" json:"expiresAt,omitempty"`
}

// NotificationInput is what callers hand to the fan-out. RecipientID may be empty when the process has no owner.
type NotificationInput struct {
	RecipientID string
	ProcessID   string
	Title       string
	Message     string
	Type        EventType
	Category    EventCategory
	Priority    NotificationPriority
	Context     NotificationContext
}

// NotificationFilter scopes notification listings.
type NotificationFilter struct {
	RecipientID string
	OnlyUnread  bool
	Limit       int
	Offset      int
}
