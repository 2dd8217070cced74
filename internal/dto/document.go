package dto

import "github.com/noah-isme/casetrack-api/internal/models"

// SubmitDocumentRequest holds the multipart metadata and the accepted bytes.
type SubmitDocumentRequest struct {
	Type        string `form:"type" validate:"required"`
	FileName    string `form:"-"`
	ContentType string `form:"-"`
	Data        []byte `form:"-"`
}

// TimelineEventOverride lets reviewers word the audit entry themselves.
type TimelineEventOverride struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ReviewDocumentRequest captures a review decision. Status wins over Verified when both are sent.
type ReviewDocumentRequest struct {
	Verified        *bool                  `json:"verified"`
	Status          models.DocumentStatus  `json:"status"`
	RejectionReason *string                `json:"rejectionReason"`
	TimelineEvent   *TimelineEventOverride `json:"timelineEvent"`
}

// Decision resolves the requested terminal status.
func (r ReviewDocumentRequest) Decision() models.DocumentStatus {
	if r.Status != "" {
		return r.Status
	}
	if r.Verified != nil && *r.Verified {
		return models.DocumentStatusVerified
	}
	if r.Verified != nil {
		return models.DocumentStatusRejected
	}
	return ""
}
