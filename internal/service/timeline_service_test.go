package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

func TestTimelineRecordDerivesCategory(t *testing.T) {
	lc := newLifecycle()

	event, err := lc.timeline.Record(context.Background(), TimelineEntry{
		ProcessID: "proc-1",
		Title:     "Checklist reviewed",
		Metadata:  models.AnalysisMetadata{StepID: "DOCUMENTOS", CheckedItems: []string{"id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryAnalysis, event.Category)
	assert.Equal(t, models.ActionStepChecklist, event.ActionType)
	assert.Equal(t, models.EventTypeInfo, event.Type)
	assert.Equal(t, models.SourceSystem, event.Source)

	_, err = lc.timeline.Record(context.Background(), TimelineEntry{ProcessID: "proc-1", Title: "no metadata"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = lc.timeline.Record(context.Background(), TimelineEntry{Title: "no process", Metadata: models.AnalysisMetadata{}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTimelineListScoping(t *testing.T) {
	ctx := context.Background()
	lc := newLifecycle()
	_, err := lc.timeline.Record(ctx, TimelineEntry{ProcessID: "proc-1", Title: "a", Metadata: models.AnalysisMetadata{}})
	require.NoError(t, err)

	_, err = lc.timeline.List(ctx, models.TimelineFilter{}, operatorActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	events, err := lc.timeline.List(ctx, models.TimelineFilter{}, adminActor)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = lc.timeline.List(ctx, models.TimelineFilter{ProcessID: "proc-1"}, operatorActor)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = lc.timeline.List(ctx, models.TimelineFilter{From: &from, To: &to}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTimelineExportCSV(t *testing.T) {
	ctx := context.Background()
	lc := newLifecycle()
	p := lc.db.seedProcess(models.Process{Status: models.ProcessStatusCreated})
	_, err := lc.processes.StartProcess(ctx, p.ID, operatorActor)
	require.NoError(t, err)

	out, err := lc.timeline.Export(ctx, p.ID, "CSV", operatorActor)
	require.NoError(t, err)
	assert.Equal(t, "timeline-"+p.ID+".csv", out.Filename)
	assert.True(t, strings.Contains(string(out.Data), "Process started"))

	_, err = lc.timeline.Export(ctx, p.ID, "xlsx", operatorActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = lc.timeline.Export(ctx, "missing", "csv", operatorActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimelineExportDisabled(t *testing.T) {
	db := newMemDB()
	svc := NewTimelineService(memTimeline{db}, memProcesses{db}, nil, nil, false)

	_, err := svc.Export(context.Background(), "proc-1", "csv", adminActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
