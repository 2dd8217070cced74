package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type processStore interface {
	Create(ctx context.Context, p *models.Process) error
	GetByID(ctx context.Context, id string) (*models.Process, error)
	List(ctx context.Context, filter models.ProcessFilter) ([]models.Process, error)
	UpdateState(ctx context.Context, p *models.Process) error
	SetClient(ctx context.Context, id, clientID string) error
	TouchInteraction(ctx context.Context, id string, at time.Time) error
}

type clientStore interface {
	Create(ctx context.Context, c *models.Client) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByPhone(ctx context.Context, phone string) (*models.Client, error)
	UpdateColumn(ctx context.Context, id, column string, value interface{}) error
}

type companyStore interface {
	Create(ctx context.Context, c *models.Company) error
	GetByProcessID(ctx context.Context, processID string) (*models.Company, error)
	UpdateColumn(ctx context.Context, id, column string, value interface{}) error
}

// FieldUpdateResult returns the mutated sub-entity.
type FieldUpdateResult struct {
	Entity  models.EntityKind `json:"entity"`
	Field   string            `json:"field"`
	Created bool              `json:"created"`
	Client  *models.Client    `json:"client,omitempty"`
	Company *models.Company   `json:"company,omitempty"`
}

// change describes the audit entry and follow-up notification of one accepted mutation.
type change struct {
	title       string
	description string
	eventType   models.EventType
	meta        models.EventMetadata
	notify      bool
	priority    models.NotificationPriority
}

// ProcessService drives the lifecycle state machine.
type ProcessService struct {
	tx        transactor
	processes processStore
	clients   clientStore
	companies companyStore
	timeline  timelineRecorder
	notifier  notifier
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProcessService constructs the service.
func NewProcessService(tx transactor, processes processStore, clients clientStore, companies companyStore, timeline timelineRecorder, notifier notifier, metrics *MetricsService, logger *zap.Logger) *ProcessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessService{
		tx:        tx,
		processes: processes,
		clients:   clients,
		companies: companies,
		timeline:  timeline,
		notifier:  notifier,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger,
		now:       utcNow,
	}
}

// Get returns a process snapshot.
func (s *ProcessService) Get(ctx context.Context, id string) (*models.Process, error) {
	p, err := s.processes.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "process")
	}
	return p, nil
}

// CreateProcess opens a case in CREATED with progress 0 and an empty pending set.
func (s *ProcessService) CreateProcess(ctx context.Context, req dto.CreateProcessRequest, actor Actor) (*models.Process, error) {
	var created *models.Process
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.create(ctx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyCreated(ctx, created)
	return created, nil
}

// create runs inside the caller's transaction and sends no notification.
func (s *ProcessService) create(ctx context.Context, req dto.CreateProcessRequest, actor Actor) (*models.Process, error) {
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Source == "" {
		req.Source = actor.source()
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid process payload")
	}
	if _, err := s.clients.GetByID(ctx, req.ClientID); err != nil {
		return nil, lookupErr(err, "client")
	}
	p := &models.Process{
		ClientID:         strPtr(req.ClientID),
		Type:             req.Type,
		Status:           models.ProcessStatusCreated,
		Progress:         0,
		Priority:         req.Priority,
		Source:           req.Source,
		PendingDataItems: pq.StringArray{},
		CreatedAt:        s.now(),
	}
	if err := s.processes.Create(ctx, p); err != nil {
		return nil, appErrors.Internal(err, "failed to create process")
	}
	_, err := s.timeline.Record(ctx, TimelineEntry{
		ProcessID:  p.ID,
		Title:      "Process created",
		Type:       models.EventTypeInfo,
		Source:     req.Source,
		OperatorID: actor.operatorRef(),
		Metadata: models.StatusChangeMetadata{
			ActionType: models.ActionProcessCreated,
			NewStatus:  models.ProcessStatusCreated,
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProcessService) notifyCreated(ctx context.Context, p *models.Process) {
	s.notifier.Notify(ctx, models.NotificationInput{
		ProcessID: p.ID,
		Title:     "New process",
		Message:   fmt.Sprintf("A %s process was opened and awaits assignment", strings.ToLower(string(p.Type))),
		Type:      models.EventTypeInfo,
		Category:  models.CategoryStatus,
		Priority:  models.NotificationPriority(p.Priority),
		Context:   models.NotificationContext{ActionType: models.ActionProcessCreated, Status: p.Status},
	})
}

// StartProcess moves a CREATED process to ANALYZING_DATA keeping progress at 0.
func (s *ProcessService) StartProcess(ctx context.Context, id string, actor Actor) (*models.Process, error) {
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if p.Status != models.ProcessStatusCreated {
			return nil, invalidTransition(p.Status, models.ProcessStatusAnalyzingData)
		}
		prev := p.Status
		p.Status = models.ProcessStatusAnalyzingData
		p.Progress = 0
		return &change{
			title:     "Process started",
			eventType: models.EventTypeInfo,
			meta: models.StatusChangeMetadata{
				ActionType:     models.ActionProcessStarted,
				PreviousStatus: prev,
				NewStatus:      p.Status,
			},
			notify: true,
		}, nil
	})
}

// AdvanceStep applies one entry of the step table.
func (s *ProcessService) AdvanceStep(ctx context.Context, id string, req dto.AdvanceStepRequest, actor Actor) (*models.Process, error) {
	step, ok := LookupStep(strings.TrimSpace(req.Step))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownStep, fmt.Sprintf("unknown step %q", req.Step))
	}
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if p.Status == models.ProcessStatusCreated || p.Status.Terminal() {
			return nil, invalidTransition(p.Status, step.NextStatus)
		}
		if p.Status == step.NextStatus && p.Progress == step.Progress {
			// step already applied; only the checklist is new
			return &change{
				title:       step.Title,
				description: req.Data.Notes,
				eventType:   models.EventTypeInfo,
				meta: models.AnalysisMetadata{
					StepID:       step.ID,
					CheckedItems: req.Data.CheckedItems,
					Notes:        req.Data.Notes,
				},
			}, nil
		}
		meta := models.StatusChangeMetadata{
			ActionType:       models.ActionStepAdvanced,
			PreviousStatus:   p.Status,
			NewStatus:        step.NextStatus,
			PreviousProgress: p.Progress,
			NewProgress:      step.Progress,
			StepID:           step.ID,
			CheckedItems:     req.Data.CheckedItems,
		}
		p.Status = step.NextStatus
		p.Progress = step.Progress
		return &change{
			title:       step.Title,
			description: req.Data.Notes,
			eventType:   models.EventTypeSuccess,
			meta:        meta,
			notify:      true,
		}, nil
	})
}

// UpdatePendingData overwrites the pending set and moves the process to PENDING_DATA.
// The added/removed diff is computed against the caller supplied previous set.
func (s *ProcessService) UpdatePendingData(ctx context.Context, id string, req dto.UpdatePendingDataRequest, actor Actor) (*models.Process, error) {
	items := normalizeItems(req.PendingItems)
	previous := normalizeItems(req.PreviousItems)
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if p.Status.Terminal() {
			return nil, invalidTransition(p.Status, models.ProcessStatusPendingData)
		}
		prevStatus := req.PreviousStatus
		if prevStatus == "" {
			prevStatus = p.Status
		}
		added, removed := diffItems(previous, items)
		p.PendingDataItems = pq.StringArray(items)
		p.Status = models.ProcessStatusPendingData
		return &change{
			title:       "Pending data updated",
			description: fmt.Sprintf("%d item(s) pending", len(items)),
			eventType:   models.EventTypeWarning,
			meta: models.PendingDataMetadata{
				PreviousStatus: prevStatus,
				NewStatus:      p.Status,
				Items:          items,
				Added:          added,
				Removed:        removed,
			},
			notify: true,
		}, nil
	})
}

// RecordPayment applies an externally reported payment state.
func (s *ProcessService) RecordPayment(ctx context.Context, id string, req dto.PaymentRequest, actor Actor) (*models.Process, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Status.IsPayment() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must belong to the payment track")
	}
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if !models.CanEnterPayment(p.Status, req.Status) {
			return nil, invalidTransition(p.Status, req.Status)
		}
		prev := p.Status
		p.Status = req.Status
		if req.Amount != nil {
			p.Amount = req.Amount
		}
		if req.Method != nil {
			p.Method = req.Method
		}
		if req.Reference != nil {
			p.Reference = req.Reference
		}
		eventType := models.EventTypeInfo
		switch req.Status {
		case models.ProcessStatusPaymentConfirmed:
			confirmed := s.now()
			p.ConfirmedAt = &confirmed
			eventType = models.EventTypeSuccess
		case models.ProcessStatusPaymentFailed:
			eventType = models.EventTypeError
		}
		return &change{
			title:     "Payment " + strings.ToLower(strings.ReplaceAll(string(req.Status), "_", " ")),
			eventType: eventType,
			meta: models.StatusChangeMetadata{
				ActionType:       models.ActionPaymentRecorded,
				PreviousStatus:   prev,
				NewStatus:        p.Status,
				PreviousProgress: p.Progress,
				NewProgress:      p.Progress,
			},
			notify: true,
		}, nil
	})
}

// Complete closes an APPROVED process.
func (s *ProcessService) Complete(ctx context.Context, id string, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if p.Status != models.ProcessStatusApproved {
			return nil, invalidTransition(p.Status, models.ProcessStatusCompleted)
		}
		meta := statusMeta(p, models.ProcessStatusCompleted, 100, "")
		p.Status = models.ProcessStatusCompleted
		p.Progress = 100
		return &change{title: "Process completed", eventType: models.EventTypeSuccess, meta: meta, notify: true}, nil
	})
}

// Cancel moves a non-terminal process to CANCELLED.
func (s *ProcessService) Cancel(ctx context.Context, id, reason string, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.adminMove(ctx, id, models.ProcessStatusCancelled, strings.TrimSpace(reason), "Process cancelled", models.EventTypeWarning, actor)
}

// Reject moves a non-terminal process to REJECTED. A reason is mandatory.
func (s *ProcessService) Reject(ctx context.Context, id, reason string, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	return s.adminMove(ctx, id, models.ProcessStatusRejected, reason, "Process rejected", models.EventTypeError, actor)
}

// ChangeStatus is the administrative override. Progress is left untouched.
func (s *ProcessService) ChangeStatus(ctx context.Context, id string, req dto.StatusChangeRequest, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Status.Valid() || req.Status == models.ProcessStatusCreated {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target status")
	}
	return s.adminMove(ctx, id, req.Status, strings.TrimSpace(req.Reason), "Status changed", models.EventTypeInfo, actor)
}

func (s *ProcessService) adminMove(ctx context.Context, id string, target models.ProcessStatus, reason, title string, eventType models.EventType, actor Actor) (*models.Process, error) {
	return s.mutate(ctx, id, actor, func(p *models.Process) (*change, error) {
		if p.Status.Terminal() || p.Status == target {
			return nil, invalidTransition(p.Status, target)
		}
		meta := statusMeta(p, target, p.Progress, reason)
		p.Status = target
		return &change{title: title, description: reason, eventType: eventType, meta: meta, notify: true, priority: models.NotificationPriorityHigh}, nil
	})
}

// UpdateField writes one whitelisted field of the client or company, creating the entity on first write.
func (s *ProcessService) UpdateField(ctx context.Context, id string, kind models.EntityKind, req dto.UpdateFieldRequest, actor Actor) (*FieldUpdateResult, error) {
	field := strings.TrimSpace(req.Field)
	var (
		result *FieldUpdateResult
		apply  func(ctx context.Context, p *models.Process) (*FieldUpdateResult, models.FieldUpdateMetadata, error)
	)
	switch kind {
	case models.EntityClient:
		def, ok := clientFields[field]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not updatable on client", field))
		}
		value, display, err := def.parse(req.Value)
		if err != nil {
			return nil, err
		}
		apply = func(ctx context.Context, p *models.Process) (*FieldUpdateResult, models.FieldUpdateMetadata, error) {
			return s.applyClientField(ctx, p, field, def, value, display)
		}
	case models.EntityCompany:
		def, ok := companyFields[field]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not updatable on company", field))
		}
		value, display, err := def.parse(req.Value)
		if err != nil {
			return nil, err
		}
		apply = func(ctx context.Context, p *models.Process) (*FieldUpdateResult, models.FieldUpdateMetadata, error) {
			return s.applyCompanyField(ctx, p, field, def, value, display)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity must be client or company")
	}

	var process *models.Process
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.processes.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "process")
		}
		if p.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("process is %s", p.Status))
		}
		res, meta, err := apply(ctx, p)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.processes.TouchInteraction(ctx, p.ID, now); err != nil {
			return appErrors.Internal(err, "failed to touch process")
		}
		p.LastInteractionAt = &now
		if _, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:  p.ID,
			Title:      fmt.Sprintf("%s %s updated", kind, field),
			Type:       models.EventTypeInfo,
			Source:     actor.source(),
			OperatorID: actor.operatorRef(),
			Metadata:   meta,
		}); err != nil {
			return err
		}
		result = res
		process = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if process.HasOwner() {
		s.notifier.Notify(ctx, models.NotificationInput{
			RecipientID: process.OwnerID(),
			ProcessID:   process.ID,
			Title:       "Process data updated",
			Message:     fmt.Sprintf("%s %s was updated", kind, field),
			Type:        models.EventTypeInfo,
			Category:    models.CategoryUpdateField,
			Priority:    models.NotificationPriorityLow,
			Context:     models.NotificationContext{ActionType: models.ActionFieldUpdated, Status: process.Status},
		})
	}
	return result, nil
}

func (s *ProcessService) applyClientField(ctx context.Context, p *models.Process, field string, def clientField, value interface{}, display *string) (*FieldUpdateResult, models.FieldUpdateMetadata, error) {
	meta := models.FieldUpdateMetadata{ActionType: models.ActionFieldUpdated, Entity: string(models.EntityClient), Field: field, NewValue: display}
	var client *models.Client
	if p.ClientID != nil {
		c, err := s.clients.GetByID(ctx, *p.ClientID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, meta, appErrors.Internal(err, "failed to load client")
		}
		client = c
	}
	if client == nil {
		client = &models.Client{Name: models.NotInformed, Source: p.Source}
		if err := s.clients.Create(ctx, client); err != nil {
			return nil, meta, appErrors.Internal(err, "failed to create client")
		}
		if err := s.processes.SetClient(ctx, p.ID, client.ID); err != nil {
			return nil, meta, appErrors.Internal(err, "failed to link client")
		}
		p.ClientID = strPtr(client.ID)
		meta.Created = true
	}
	meta.OldValue = def.current(client)
	if err := s.clients.UpdateColumn(ctx, client.ID, def.column, value); err != nil {
		return nil, meta, appErrors.Internal(err, "failed to update client")
	}
	updated, err := s.clients.GetByID(ctx, client.ID)
	if err != nil {
		return nil, meta, lookupErr(err, "client")
	}
	return &FieldUpdateResult{Entity: models.EntityClient, Field: field, Created: meta.Created, Client: updated}, meta, nil
}

func (s *ProcessService) applyCompanyField(ctx context.Context, p *models.Process, field string, def companyField, value interface{}, display *string) (*FieldUpdateResult, models.FieldUpdateMetadata, error) {
	meta := models.FieldUpdateMetadata{ActionType: models.ActionFieldUpdated, Entity: string(models.EntityCompany), Field: field, NewValue: display}
	company, err := s.companies.GetByProcessID(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, meta, appErrors.Internal(err, "failed to load company")
		}
		company = models.NewPlaceholderCompany(p.ID)
		if err := s.companies.Create(ctx, company); err != nil {
			return nil, meta, appErrors.Internal(err, "failed to create company")
		}
		meta.Created = true
	}
	meta.OldValue = def.current(company)
	if err := s.companies.UpdateColumn(ctx, company.ID, def.column, value); err != nil {
		return nil, meta, appErrors.Internal(err, "failed to update company")
	}
	updated, err := s.companies.GetByProcessID(ctx, p.ID)
	if err != nil {
		return nil, meta, lookupErr(err, "company")
	}
	return &FieldUpdateResult{Entity: models.EntityCompany, Field: field, Created: meta.Created, Company: updated}, meta, nil
}

// mutate loads the process, applies fn, then persists state and one timeline event in a single transaction.
// The notification goes out after commit.
func (s *ProcessService) mutate(ctx context.Context, id string, actor Actor, fn func(p *models.Process) (*change, error)) (*models.Process, error) {
	var (
		updated *models.Process
		applied *change
		from    models.ProcessStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.processes.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "process")
		}
		from = p.Status
		c, err := fn(p)
		if err != nil {
			return err
		}
		now := s.now()
		p.LastInteractionAt = &now
		if err := s.processes.UpdateState(ctx, p); err != nil {
			return appErrors.Internal(err, "failed to update process")
		}
		if _, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:   p.ID,
			Title:       c.title,
			Description: c.description,
			Type:        c.eventType,
			Source:      actor.source(),
			OperatorID:  actor.operatorRef(),
			Metadata:    c.meta,
		}); err != nil {
			return err
		}
		updated = p
		applied = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != updated.Status {
		s.metrics.ObserveTransition(from, updated.Status)
	}
	if applied.notify {
		s.notifyOwner(ctx, updated, applied)
	}
	return updated, nil
}

func (s *ProcessService) notifyOwner(ctx context.Context, p *models.Process, c *change) {
	priority := c.priority
	if priority == "" {
		priority = models.NotificationPriority(p.Priority)
	}
	msg := c.description
	if msg == "" {
		msg = fmt.Sprintf("Process is now %s (%d%%)", p.Status, p.Progress)
	}
	nctx := models.NotificationContext{ActionType: c.meta.Action(), Status: p.Status}
	if sc, ok := c.meta.(models.StatusChangeMetadata); ok {
		nctx.StepID = sc.StepID
	}
	s.notifier.Notify(ctx, models.NotificationInput{
		RecipientID: p.OwnerID(),
		ProcessID:   p.ID,
		Title:       c.title,
		Message:     msg,
		Type:        c.eventType,
		Category:    c.meta.Category(),
		Priority:    priority,
		Context:     nctx,
	})
}

// ListByClient returns the processes of a client.
func (s *ProcessService) ListByClient(ctx context.Context, clientID string) ([]models.Process, error) {
	items, err := s.processes.List(ctx, models.ProcessFilter{ClientID: clientID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list processes")
	}
	return items, nil
}

func statusMeta(p *models.Process, target models.ProcessStatus, progress int, reason string) models.StatusChangeMetadata {
	return models.StatusChangeMetadata{
		ActionType:       models.ActionStatusChanged,
		PreviousStatus:   p.Status,
		NewStatus:        target,
		PreviousProgress: p.Progress,
		NewProgress:      progress,
		Reason:           reason,
	}
}

func invalidTransition(from, to models.ProcessStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move process from %s to %s", from, to))
}

// normalizeItems trims, drops blanks and dedupes while keeping order.
func normalizeItems(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func diffItems(previous, next []string) (added, removed []string) {
	prev := make(map[string]struct{}, len(previous))
	for _, it := range previous {
		prev[it] = struct{}{}
	}
	cur := make(map[string]struct{}, len(next))
	for _, it := range next {
		cur[it] = struct{}{}
		if _, ok := prev[it]; !ok {
			added = append(added, it)
		}
	}
	for _, it := range previous {
		if _, ok := cur[it]; !ok {
			removed = append(removed, it)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	if added == nil {
		added = []string{}
	}
	if removed == nil {
		removed = []string{}
	}
	return added, removed
}
