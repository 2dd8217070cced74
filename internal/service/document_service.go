package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, processID, id string) (*models.Document, error)
	ListByProcess(ctx context.Context, processID string) ([]models.Document, error)
	UpdateReview(ctx context.Context, d *models.Document) error
}

type documentProcessStore interface {
	GetByID(ctx context.Context, id string) (*models.Process, error)
	TouchInteraction(ctx context.Context, id string, at time.Time) error
}

type documentFileStore interface {
	Store(ctx context.Context, processID, filename string, data []byte) (string, error)
	Remove(ctx context.Context, ref string) error
}

// DocumentServiceConfig holds upload limits.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// DocumentService runs the per-document PENDING -> SENT -> VERIFIED|REJECTED workflow.
type DocumentService struct {
	tx        transactor
	documents documentStore
	processes documentProcessStore
	files     documentFileStore
	timeline  timelineRecorder
	notifier  notifier
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	mimeSet   map[string]struct{}
	now       func() time.Time
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(tx transactor, documents documentStore, processes documentProcessStore, files documentFileStore, timeline timelineRecorder, notifier notifier, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &DocumentService{
		tx:        tx,
		documents: documents,
		processes: processes,
		files:     files,
		timeline:  timeline,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
		now:       utcNow,
	}
}

// Submit validates and stores the bytes, then creates a SENT document with its audit event.
// A rejected upload leaves no document, event or notification behind.
func (s *DocumentService) Submit(ctx context.Context, processID string, req dto.SubmitDocumentRequest, actor Actor) (*models.Document, error) {
	docType := strings.TrimSpace(req.Type)
	if docType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document type is required")
	}
	size := int64(len(req.Data))
	if size == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType := detectMime(req.Data)
	if _, ok := s.mimeSet[mimeType]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mime type %s not allowed", mimeType))
	}

	process, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return nil, lookupErr(err, "process")
	}
	if process.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("process is %s", process.Status))
	}

	ref, err := s.files.Store(ctx, processID, req.FileName, req.Data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store document")
	}

	doc := &models.Document{
		ProcessID:    processID,
		Type:         docType,
		Status:       models.DocumentStatusSent,
		FileRef:      ref,
		FileName:     req.FileName,
		MimeType:     mimeType,
		SizeBytes:    size,
		UploadedByID: actor.operatorRef(),
		CreatedAt:    s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.documents.Create(ctx, doc); err != nil {
			return appErrors.Internal(err, "failed to create document")
		}
		if err := s.processes.TouchInteraction(ctx, processID, doc.CreatedAt); err != nil {
			return appErrors.Internal(err, "failed to touch process")
		}
		_, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:  processID,
			Title:      "Document sent",
			Type:       models.EventTypeInfo,
			Source:     actor.source(),
			OperatorID: actor.operatorRef(),
			Metadata: models.DocumentMetadata{
				ActionType:   models.ActionDocumentSent,
				DocumentID:   doc.ID,
				DocumentType: docType,
				NewStatus:    doc.Status,
				SizeBytes:    size,
				ContentType:  mimeType,
			},
		})
		return err
	})
	if err != nil {
		if rmErr := s.files.Remove(ctx, ref); rmErr != nil {
			s.logger.Warn("failed to remove orphaned document file", zap.Error(rmErr), zap.String("ref", ref))
		}
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationInput{
		RecipientID: process.OwnerID(),
		ProcessID:   processID,
		Title:       "Document received",
		Message:     fmt.Sprintf("%s was sent for review", docType),
		Type:        models.EventTypeInfo,
		Category:    models.CategoryDocument,
		Priority:    models.NotificationPriorityMedium,
		Context:     models.NotificationContext{ActionType: models.ActionDocumentSent, DocumentID: doc.ID, Status: process.Status},
	})
	return doc, nil
}

// Review records a VERIFIED or REJECTED decision. The process must already have an owner.
func (s *DocumentService) Review(ctx context.Context, processID, documentID string, req dto.ReviewDocumentRequest, actor Actor) (*models.Document, error) {
	if actor.OperatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "reviewer is required")
	}
	decision := req.Decision()
	if decision != models.DocumentStatusVerified && decision != models.DocumentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be VERIFIED or REJECTED")
	}
	reason := ""
	if req.RejectionReason != nil {
		reason = strings.TrimSpace(*req.RejectionReason)
	}
	if decision == models.DocumentStatusRejected && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejectionReason is required when rejecting")
	}

	var (
		reviewed *models.Document
		process  *models.Process
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.processes.GetByID(ctx, processID)
		if err != nil {
			return lookupErr(err, "process")
		}
		if !p.HasOwner() {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "process has no assigned operator")
		}
		doc, err := s.documents.GetByID(ctx, processID, documentID)
		if err != nil {
			return lookupErr(err, "document")
		}
		if doc.Status.Reviewed() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("document already %s", doc.Status))
		}

		now := s.now()
		previous := doc.Status
		doc.Status = decision
		doc.ReviewedAt = &now
		reviewer := actor.operatorRef()
		if decision == models.DocumentStatusVerified {
			doc.VerifiedByID, doc.RejectedByID, doc.RejectionReason = reviewer, nil, nil
		} else {
			doc.VerifiedByID, doc.RejectedByID, doc.RejectionReason = nil, reviewer, strPtr(reason)
		}
		if err := s.documents.UpdateReview(ctx, doc); err != nil {
			return appErrors.Internal(err, "failed to update document")
		}
		if err := s.processes.TouchInteraction(ctx, processID, now); err != nil {
			return appErrors.Internal(err, "failed to touch process")
		}

		title, description, eventType := reviewEventText(doc, reason, req.TimelineEvent)
		if _, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:   processID,
			Title:       title,
			Description: description,
			Type:        eventType,
			Source:      actor.source(),
			OperatorID:  reviewer,
			Metadata: models.DocumentMetadata{
				ActionType:      models.ActionDocumentReviewed,
				DocumentID:      doc.ID,
				DocumentType:    doc.Type,
				PreviousStatus:  previous,
				NewStatus:       doc.Status,
				RejectionReason: reason,
			},
		}); err != nil {
			return err
		}
		reviewed = doc
		process = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	title, _, eventType := reviewEventText(reviewed, reason, nil)
	s.notifier.Notify(ctx, models.NotificationInput{
		RecipientID: process.OwnerID(),
		ProcessID:   processID,
		Title:       title,
		Message:     fmt.Sprintf("%s is %s", reviewed.Type, strings.ToLower(string(reviewed.Status))),
		Type:        eventType,
		Category:    models.CategoryDocument,
		Priority:    models.NotificationPriorityMedium,
		Context:     models.NotificationContext{ActionType: models.ActionDocumentReviewed, DocumentID: reviewed.ID, Status: process.Status},
	})
	return reviewed, nil
}

// List returns the documents of a process.
func (s *DocumentService) List(ctx context.Context, processID string) ([]models.Document, error) {
	if _, err := s.processes.GetByID(ctx, processID); err != nil {
		return nil, lookupErr(err, "process")
	}
	docs, err := s.documents.ListByProcess(ctx, processID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list documents")
	}
	return docs, nil
}

func reviewEventText(doc *models.Document, reason string, override *dto.TimelineEventOverride) (string, string, models.EventType) {
	title := fmt.Sprintf("Document %s verified", doc.Type)
	description := ""
	eventType := models.EventTypeSuccess
	if doc.Status == models.DocumentStatusRejected {
		title = fmt.Sprintf("Document %s rejected", doc.Type)
		description = reason
		eventType = models.EventTypeWarning
	}
	if override != nil {
		if t := strings.TrimSpace(override.Title); t != "" {
			title = t
		}
		if d := strings.TrimSpace(override.Description); d != "" {
			description = d
		}
	}
	return title, description, eventType
}

// detectMime sniffs the content rather than trusting the client supplied header.
func detectMime(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
