package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type bulkProcessStore interface {
	List(ctx context.Context, filter models.ProcessFilter) ([]models.Process, error)
	BulkAssign(ctx context.Context, ids []string, operatorID string, at time.Time) ([]string, error)
	BulkUpdatePriority(ctx context.Context, ids []string, priority models.ProcessPriority, at time.Time) ([]string, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status models.ProcessStatus, at time.Time) ([]string, error)
}

type bulkOperatorLookup interface {
	GetByID(ctx context.Context, id string) (*models.Operator, error)
}

// BulkService applies lifecycle primitives across a batch. The batched update and every
// per-process timeline event commit in one transaction.
type BulkService struct {
	tx        transactor
	processes bulkProcessStore
	operators bulkOperatorLookup
	timeline  timelineRecorder
	notifier  notifier
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBulkService constructs the service.
func NewBulkService(tx transactor, processes bulkProcessStore, operators bulkOperatorLookup, timeline timelineRecorder, notifier notifier, metrics *MetricsService, logger *zap.Logger) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		tx:        tx,
		processes: processes,
		operators: operators,
		timeline:  timeline,
		notifier:  notifier,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger,
		now:       utcNow,
	}
}

// batchItem is one process changed by a batch, with its pre-update snapshot.
type batchItem struct {
	before models.Process
}

// Reassign overwrites the owner of every non-terminal process in the batch.
func (s *BulkService) Reassign(ctx context.Context, req dto.BulkReassignRequest, actor Actor) (*dto.BulkResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk reassign payload")
	}
	target := req.OperatorID
	items, result, err := s.run(ctx, req.ProcessIDs, func(ctx context.Context, ids []string, at time.Time) ([]string, error) {
		if _, err := s.operators.GetByID(ctx, target); err != nil {
			return nil, lookupErr(err, "operator")
		}
		return s.processes.BulkAssign(ctx, ids, target, at)
	}, func(it batchItem) TimelineEntry {
		return TimelineEntry{
			Title: "Operator reassigned",
			Type:  models.EventTypeInfo,
			Metadata: models.AssignmentMetadata{
				ActionType:         models.ActionOperatorAssigned,
				PreviousOperatorID: it.before.AssignedOperatorID,
				NewOperatorID:      strPtr(target),
				Bulk:               true,
			},
		}
	}, actor)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBulk("reassign", result.Updated)
	for _, it := range items {
		s.notifier.Notify(ctx, models.NotificationInput{
			RecipientID: target,
			ProcessID:   it.before.ID,
			Title:       "Process assigned to you",
			Message:     fmt.Sprintf("Process %s was reassigned to you", it.before.ID),
			Type:        models.EventTypeInfo,
			Category:    models.CategoryUpdateField,
			Priority:    models.NotificationPriority(it.before.Priority),
			Context:     models.NotificationContext{ActionType: models.ActionOperatorAssigned, Status: it.before.Status},
		})
	}
	return result, nil
}

// UpdatePriority sets one priority on every non-terminal process in the batch.
func (s *BulkService) UpdatePriority(ctx context.Context, req dto.BulkPriorityRequest, actor Actor) (*dto.BulkResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk priority payload")
	}
	items, result, err := s.run(ctx, req.ProcessIDs, func(ctx context.Context, ids []string, at time.Time) ([]string, error) {
		return s.processes.BulkUpdatePriority(ctx, ids, req.Priority, at)
	}, func(it batchItem) TimelineEntry {
		return TimelineEntry{
			Title: "Priority changed",
			Type:  models.EventTypeInfo,
			Metadata: models.FieldUpdateMetadata{
				ActionType: models.ActionPriorityChanged,
				Entity:     "process",
				Field:      "priority",
				OldValue:   strPtr(string(it.before.Priority)),
				NewValue:   strPtr(string(req.Priority)),
				Bulk:       true,
			},
		}
	}, actor)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBulk("priority", result.Updated)
	for _, it := range items {
		if !it.before.HasOwner() {
			continue
		}
		s.notifier.Notify(ctx, models.NotificationInput{
			RecipientID: it.before.OwnerID(),
			ProcessID:   it.before.ID,
			Title:       "Priority changed",
			Message:     fmt.Sprintf("Priority is now %s", req.Priority),
			Type:        models.EventTypeInfo,
			Category:    models.CategoryUpdateField,
			Priority:    models.NotificationPriority(req.Priority),
			Context:     models.NotificationContext{ActionType: models.ActionPriorityChanged, Status: it.before.Status},
		})
	}
	return result, nil
}

// UpdateStatus forces one status on every non-terminal process in the batch. Progress is untouched.
func (s *BulkService) UpdateStatus(ctx context.Context, req dto.BulkStatusRequest, actor Actor) (*dto.BulkResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}
	if !req.Status.Valid() || req.Status == models.ProcessStatusCreated {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target status")
	}
	items, result, err := s.run(ctx, req.ProcessIDs, func(ctx context.Context, ids []string, at time.Time) ([]string, error) {
		return s.processes.BulkUpdateStatus(ctx, ids, req.Status, at)
	}, func(it batchItem) TimelineEntry {
		return TimelineEntry{
			Title:       "Status changed",
			Description: req.Reason,
			Type:        models.EventTypeWarning,
			Metadata: models.StatusChangeMetadata{
				ActionType:       models.ActionStatusChanged,
				PreviousStatus:   it.before.Status,
				NewStatus:        req.Status,
				PreviousProgress: it.before.Progress,
				NewProgress:      it.before.Progress,
				Reason:           req.Reason,
				Bulk:             true,
			},
		}
	}, actor)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBulk("status", result.Updated)
	for _, it := range items {
		s.metrics.ObserveTransition(it.before.Status, req.Status)
		s.notifier.Notify(ctx, models.NotificationInput{
			RecipientID: it.before.OwnerID(),
			ProcessID:   it.before.ID,
			Title:       "Status changed",
			Message:     fmt.Sprintf("Process is now %s", req.Status),
			Type:        models.EventTypeWarning,
			Category:    models.CategoryStatus,
			Priority:    models.NotificationPriorityHigh,
			Context:     models.NotificationContext{ActionType: models.ActionStatusChanged, Status: req.Status},
		})
	}
	return result, nil
}

// run snapshots the batch, applies update and writes one event per changed process, all in one transaction.
func (s *BulkService) run(
	ctx context.Context,
	rawIDs []string,
	update func(ctx context.Context, ids []string, at time.Time) ([]string, error),
	entry func(it batchItem) TimelineEntry,
	actor Actor,
) ([]batchItem, *dto.BulkResult, error) {
	ids := normalizeItems(rawIDs)
	var items []batchItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		snapshot, err := s.processes.List(ctx, models.ProcessFilter{IDs: ids, Limit: len(ids)})
		if err != nil {
			return appErrors.Internal(err, "failed to load batch")
		}
		byID := make(map[string]models.Process, len(snapshot))
		for _, p := range snapshot {
			byID[p.ID] = p
		}
		changed, err := update(ctx, ids, s.now())
		if err != nil {
			return err
		}
		items = make([]batchItem, 0, len(changed))
		for _, id := range changed {
			before, ok := byID[id]
			if !ok {
				before = models.Process{ID: id}
			}
			it := batchItem{before: before}
			e := entry(it)
			e.ProcessID = id
			e.Source = actor.source()
			e.OperatorID = actor.operatorRef()
			if _, err := s.timeline.Record(ctx, e); err != nil {
				return err
			}
			items = append(items, it)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	result := &dto.BulkResult{Updated: len(items), ProcessIDs: make([]string, 0, len(items))}
	done := make(map[string]struct{}, len(items))
	for _, it := range items {
		result.ProcessIDs = append(result.ProcessIDs, it.before.ID)
		done[it.before.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := done[id]; !ok {
			result.Skipped = append(result.Skipped, id)
		}
	}
	s.logger.Info("bulk operation applied", zap.Int("updated", result.Updated), zap.Int("skipped", len(result.Skipped)))
	return items, result, nil
}
