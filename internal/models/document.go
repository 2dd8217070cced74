package models

import "time"

// DocumentStatus is the per-document review state.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusSent     DocumentStatus = "SENT"
	DocumentStatusVerified DocumentStatus = "VERIFIED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// Reviewed reports whether the document reached a terminal review state.
func (s DocumentStatus) Reviewed() bool {
	return s == DocumentStatusVerified || s == DocumentStatusRejected
}

// Document is a file submitted for a process.
type Document struct {
	ID              string         `db:"id" json:"id"`
	ProcessID       string         `db:"process_id" json:"processId"`
	Type            string         `db:"type" json:"type"`
	Status          DocumentStatus `db:"status" json:"status"`
	FileRef         string         `db:"file_ref" json:"fileRef"`
	FileName        string         `db:"file_name" json:"fileName"`
	MimeType        string         `db:"mime_type" json:"mimeType"`
	SizeBytes       int64          `db:"size_bytes" json:"sizeBytes"`
	UploadedByID    *string        `db:"uploaded_by_id" json:"uploadedById,omitempty"`
	VerifiedByID    *string        `db:"verified_by_id" json:"verifiedById,omitempty"`
	RejectedByID    *string        `db:"rejected_by_id" json:"rejectedById,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ReviewedAt      *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}
