package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type assignmentProcessStore interface {
	GetByID(ctx context.Context, id string) (*models.Process, error)
	AssignIfUnowned(ctx context.Context, id, operatorID string, at time.Time) (bool, error)
	SetOwner(ctx context.Context, id string, operatorID *string, at time.Time) error
}

type operatorStore interface {
	GetByID(ctx context.Context, id string) (*models.Operator, error)
	List(ctx context.Context, filter repository.OperatorFilter) ([]models.Operator, error)
}

// AssignmentService enforces the single-owner rule and distributes work.
type AssignmentService struct {
	tx        transactor
	processes assignmentProcessStore
	operators operatorStore
	timeline  timelineRecorder
	notifier  notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs the service.
func NewAssignmentService(tx transactor, processes assignmentProcessStore, operators operatorStore, timeline timelineRecorder, notifier notifier, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tx:        tx,
		processes: processes,
		operators: operators,
		timeline:  timeline,
		notifier:  notifier,
		logger:    logger,
		now:       utcNow,
	}
}

// Assign binds an unowned process to operatorID. A second assign fails with ALREADY_ASSIGNED.
func (s *AssignmentService) Assign(ctx context.Context, processID, operatorID string, actor Actor) (*models.Process, error) {
	return s.assign(ctx, processID, operatorID, false, actor)
}

// AutoAssign picks the active OPERATOR with the lowest computed load, ties broken by id.
func (s *AssignmentService) AutoAssign(ctx context.Context, processID string, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	candidates, err := s.operators.List(ctx, repository.OperatorFilter{Role: models.RoleOperator, Status: models.OperatorStatusActive})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list operators")
	}
	if len(candidates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active operator available")
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ProcessesCount < best.ProcessesCount || (c.ProcessesCount == best.ProcessesCount && c.ID < best.ID) {
			best = c
		}
	}
	return s.assign(ctx, processID, best.ID, true, actor)
}

func (s *AssignmentService) assign(ctx context.Context, processID, operatorID string, automatic bool, actor Actor) (*models.Process, error) {
	if operatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "operatorId is required")
	}
	var assigned *models.Process
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.processes.GetByID(ctx, processID)
		if err != nil {
			return lookupErr(err, "process")
		}
		if p.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("process is %s", p.Status))
		}
		if p.HasOwner() {
			return appErrors.Clone(appErrors.ErrAlreadyAssigned, fmt.Sprintf("process already assigned to %s", p.OwnerID()))
		}
		op, err := s.operators.GetByID(ctx, operatorID)
		if err != nil {
			return lookupErr(err, "operator")
		}
		if op.Status == models.OperatorStatusInactive {
			return appErrors.Clone(appErrors.ErrValidation, "operator is inactive")
		}
		now := s.now()
		ok, err := s.processes.AssignIfUnowned(ctx, processID, operatorID, now)
		if err != nil {
			return appErrors.Internal(err, "failed to assign process")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrAlreadyAssigned, "process was assigned concurrently")
		}
		p.AssignedOperatorID = strPtr(operatorID)
		p.UpdatedAt = now
		if _, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:   processID,
			Title:       "Operator assigned",
			Description: op.Name,
			Type:        models.EventTypeInfo,
			Source:      actor.source(),
			OperatorID:  actor.operatorRef(),
			Metadata: models.AssignmentMetadata{
				ActionType:    models.ActionOperatorAssigned,
				NewOperatorID: strPtr(operatorID),
				Automatic:     automatic,
			},
		}); err != nil {
			return err
		}
		assigned = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, models.NotificationInput{
		RecipientID: operatorID,
		ProcessID:   processID,
		Title:       "Process assigned to you",
		Message:     fmt.Sprintf("Process %s is now yours", processID),
		Type:        models.EventTypeInfo,
		Category:    models.CategoryUpdateField,
		Priority:    models.NotificationPriority(assigned.Priority),
		Context:     models.NotificationContext{ActionType: models.ActionOperatorAssigned, Status: assigned.Status},
	})
	return assigned, nil
}

// Release clears the owner of a process.
func (s *AssignmentService) Release(ctx context.Context, processID string, actor Actor) (*models.Process, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var (
		released *models.Process
		previous string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.processes.GetByID(ctx, processID)
		if err != nil {
			return lookupErr(err, "process")
		}
		if !p.HasOwner() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "process has no assigned operator")
		}
		previous = p.OwnerID()
		now := s.now()
		if err := s.processes.SetOwner(ctx, processID, nil, now); err != nil {
			return lookupErr(err, "process")
		}
		p.AssignedOperatorID = nil
		p.UpdatedAt = now
		if _, err := s.timeline.Record(ctx, TimelineEntry{
			ProcessID:  processID,
			Title:      "Operator released",
			Type:       models.EventTypeWarning,
			Source:     actor.source(),
			OperatorID: actor.operatorRef(),
			Metadata: models.AssignmentMetadata{
				ActionType:         models.ActionOperatorReleased,
				PreviousOperatorID: strPtr(previous),
			},
		}); err != nil {
			return err
		}
		released = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, models.NotificationInput{
		RecipientID: previous,
		ProcessID:   processID,
		Title:       "Process released",
		Message:     fmt.Sprintf("Process %s is no longer assigned to you", processID),
		Type:        models.EventTypeWarning,
		Category:    models.CategoryUpdateField,
		Priority:    models.NotificationPriorityLow,
		Context:     models.NotificationContext{ActionType: models.ActionOperatorReleased, Status: released.Status},
	})
	return released, nil
}

// Workload lists operators with their computed load.
func (s *AssignmentService) Workload(ctx context.Context, filter repository.OperatorFilter) ([]models.Operator, error) {
	ops, err := s.operators.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list operators")
	}
	return ops, nil
}
