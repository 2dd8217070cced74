package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
	"github.com/noah-isme/casetrack-api/pkg/export"
)

type timelineStore interface {
	Create(ctx context.Context, e *models.TimelineEvent) error
	List(ctx context.Context, filter models.TimelineFilter) ([]models.TimelineEvent, error)
}

type timelineProcessLookup interface {
	GetByID(ctx context.Context, id string) (*models.Process, error)
}

// TimelineEntry is the input of one audit append.
type TimelineEntry struct {
	ProcessID   string
	Title       string
	Description string
	Type        models.EventType
	Source      models.Source
	OperatorID  *string
	Metadata    models.EventMetadata
}

// TimelineExport is a rendered audit trail ready for download.
type TimelineExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TimelineService appends and reads the audit log.
type TimelineService struct {
	repo          timelineStore
	processes     timelineProcessLookup
	renderers     map[string]export.Renderer
	metrics       *MetricsService
	logger        *zap.Logger
	exportEnabled bool
}

// NewTimelineService constructs the service. CSV and PDF renderers are registered by default.
func NewTimelineService(repo timelineStore, processes timelineProcessLookup, metrics *MetricsService, logger *zap.Logger, exportEnabled bool) *TimelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineService{
		repo:      repo,
		processes: processes,
		renderers: map[string]export.Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		metrics:       metrics,
		logger:        logger,
		exportEnabled: exportEnabled,
	}
}

// Record appends one event inside the transaction carried by ctx.
func (s *TimelineService) Record(ctx context.Context, entry TimelineEntry) (*models.TimelineEvent, error) {
	if strings.TrimSpace(entry.ProcessID) == "" || strings.TrimSpace(entry.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timeline event requires process and title")
	}
	if entry.Type == "" {
		entry.Type = models.EventTypeInfo
	}
	if entry.Source == "" {
		entry.Source = models.SourceSystem
	}
	event, err := models.NewTimelineEvent(entry.ProcessID, entry.Title, entry.Description, entry.Type, entry.Source, entry.OperatorID, entry.Metadata)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timeline metadata")
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to record timeline event")
	}
	s.metrics.ObserveTimelineEvent(event.Category)
	return event, nil
}

// List returns events for a scoped filter. Unscoped reads are reserved for admins.
func (s *TimelineService) List(ctx context.Context, filter models.TimelineFilter, actor Actor) ([]models.TimelineEvent, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	if !filter.Scoped() {
		if !actor.IsAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "timeline reads must be scoped by process, operator or time window")
		}
		filter.Unscoped = true
		s.logger.Info("unscoped timeline query", zap.String("operator_id", actor.OperatorID))
	}
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list timeline events")
	}
	return events, nil
}

// Export renders the full timeline of one process in the requested format.
func (s *TimelineService) Export(ctx context.Context, processID, format string, actor Actor) (*TimelineExport, error) {
	if !s.exportEnabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "timeline export disabled")
	}
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if _, err := s.processes.GetByID(ctx, processID); err != nil {
		return nil, lookupErr(err, "process")
	}
	events, err := s.List(ctx, models.TimelineFilter{ProcessID: processID, Limit: 1000}, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Timeline %s", processID),
		Headers: []string{"created_at", "category", "type", "title", "description", "source", "operator"},
		Rows:    make([]map[string]string, 0, len(events)),
	}
	for _, e := range events {
		operator := ""
		if e.OperatorID != nil {
			operator = *e.OperatorID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"created_at":  e.CreatedAt.UTC().Format(time.RFC3339),
			"category":    string(e.Category),
			"type":        string(e.Type),
			"title":       e.Title,
			"description": e.Description,
			"source":      string(e.Source),
			"operator":    operator,
		})
	}
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render timeline export")
	}
	return &TimelineExport{
		Filename:    fmt.Sprintf("timeline-%s.%s", processID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}
