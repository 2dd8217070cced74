package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	"github.com/noah-isme/casetrack-api/internal/service"
	"github.com/noah-isme/casetrack-api/pkg/config"
	"github.com/noah-isme/casetrack-api/pkg/database"
)

type commandContext struct {
	actorFlag *string

	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB

	assignments   *service.AssignmentService
	bulk          *service.BulkService
	notifications *service.NotificationService
}

func newCommandContext(actorFlag *string) *commandContext {
	return &commandContext{actorFlag: actorFlag}
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureBackend(ctx context.Context) error {
	if c.db != nil {
		return nil
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	c.db = db
	c.logger = zap.NewNop()

	metrics := service.NewMetricsService()
	tx := database.NewTransactor(db)
	processes := repository.NewProcessRepository(db)
	operators := repository.NewOperatorRepository(db)
	timeline := service.NewTimelineService(repository.NewTimelineRepository(db), processes, metrics, c.logger, false)
	c.notifications = service.NewNotificationService(repository.NewNotificationRepository(db), operators, nil, metrics, c.logger, service.NotificationServiceConfig{
		TTL: cfg.Notifications.TTL,
	})
	c.assignments = service.NewAssignmentService(tx, processes, operators, timeline, c.notifications, c.logger)
	c.bulk = service.NewBulkService(tx, processes, operators, timeline, c.notifications, metrics, c.logger)
	return nil
}

// actor builds the admin identity bulk commands run as.
func (c *commandContext) actor() (service.Actor, error) {
	if c.actorFlag == nil || *c.actorFlag == "" {
		return service.Actor{}, errors.New("--as is required for write commands")
	}
	return service.Actor{OperatorID: *c.actorFlag, Role: models.RoleAdmin, Source: models.SourceSystem}, nil
}

func (c *commandContext) close() {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
}
