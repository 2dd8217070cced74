package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, filter models.NotificationFilter, now time.Time) ([]models.Notification, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error)
	MarkViewed(ctx context.Context, id string) error
	MarkAllViewed(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) ([]string, error)
}

type operatorLister interface {
	List(ctx context.Context, filter repository.OperatorFilter) ([]models.Operator, error)
}

type unreadCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type notificationDispatcher interface {
	Enqueue(id string, payload models.NotificationInput) error
}

// NotificationServiceConfig tunes expiry and caching.
type NotificationServiceConfig struct {
	TTL      time.Duration
	CacheTTL time.Duration
}

// NotificationService is the best-effort fan-out. Its failures never reach the caller of Notify.
type NotificationService struct {
	repo       notificationStore
	operators  operatorLister
	cache      unreadCache
	dispatcher notificationDispatcher
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        NotificationServiceConfig
	now        func() time.Time
}

// NewNotificationService constructs the service. cache may be nil.
func NewNotificationService(repo notificationStore, operators operatorLister, cache unreadCache, metrics *MetricsService, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &NotificationService{
		repo:      repo,
		operators: operators,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       utcNow,
	}
}

// UseDispatcher routes Notify through an asynchronous queue.
func (s *NotificationService) UseDispatcher(d notificationDispatcher) {
	s.dispatcher = d
}

// Notify hands the input to the dispatcher or delivers it inline. Errors are logged and swallowed.
func (s *NotificationService) Notify(ctx context.Context, in models.NotificationInput) {
	if s == nil {
		return
	}
	if s.dispatcher != nil {
		err := s.dispatcher.Enqueue(uuid.NewString(), in)
		if err == nil {
			return
		}
		s.logger.Warn("notification queue rejected job, delivering inline", zap.Error(err), zap.String("process_id", in.ProcessID))
	}
	if err := s.Deliver(ctx, in); err != nil {
		s.logger.Warn("failed to deliver notification", zap.Error(err), zap.String("process_id", in.ProcessID))
	}
}

// Deliver writes one row per resolved recipient. An empty recipient fans out to active admins.
// Only recipient resolution errors are returned so queue retries cannot duplicate rows.
func (s *NotificationService) Deliver(ctx context.Context, in models.NotificationInput) error {
	recipients, err := s.resolveRecipients(ctx, &in)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		s.logger.Info("notification skipped, no recipient available", zap.String("process_id", in.ProcessID), zap.String("title", in.Title))
		return nil
	}

	meta, err := json.Marshal(in.Context)
	if err != nil {
		meta = []byte(`{}`)
	}
	now := s.now()
	var expires *time.Time
	if s.cfg.TTL > 0 {
		e := now.Add(s.cfg.TTL)
		expires = &e
	}
	var processID *string
	if in.ProcessID != "" {
		processID = strPtr(in.ProcessID)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.NotificationPriorityMedium
	}

	for _, recipient := range recipients {
		n := &models.Notification{
			RecipientID: recipient,
			ProcessID:   processID,
			Title:       in.Title,
			Message:     in.Message,
			Type:        in.Type,
			Category:    in.Category,
			Priority:    priority,
			Status:      models.NotificationStatusSent,
			Metadata:    meta,
			CreatedAt:   now,
			ExpiresAt:   expires,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			s.metrics.ObserveNotification(false)
			s.logger.Warn("failed to create notification", zap.Error(err), zap.String("recipient_id", recipient))
			continue
		}
		s.metrics.ObserveNotification(true)
		s.invalidate(ctx, recipient)
	}
	return nil
}

func (s *NotificationService) resolveRecipients(ctx context.Context, in *models.NotificationInput) ([]string, error) {
	if in.RecipientID != "" {
		return []string{in.RecipientID}, nil
	}
	if s.operators == nil {
		return nil, nil
	}
	admins, err := s.operators.List(ctx, repository.OperatorFilter{Role: models.RoleAdmin, Status: models.OperatorStatusActive})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve admin queue")
	}
	in.Context.AdminQueue = true
	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// List returns the recipient's unexpired notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	if filter.RecipientID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	items, err := s.repo.ListByRecipient(ctx, filter, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, nil
}

// UnreadCount returns the unread count, served from cache when available.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	if recipientID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	key := unreadKey(recipientID)
	if s.cache != nil {
		var cached int
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("unread cache read failed", zap.Error(err))
		}
	}
	count, err := s.repo.CountUnread(ctx, recipientID, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count notifications")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("unread cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// MarkViewed flags one notification. A missing id counts as success.
func (s *NotificationService) MarkViewed(ctx context.Context, recipientID, id string) error {
	if err := s.checkOwnership(ctx, recipientID, id); err != nil {
		return err
	}
	if err := s.repo.MarkViewed(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to mark notification viewed")
	}
	s.invalidate(ctx, recipientID)
	return nil
}

// MarkAllViewed flags every notification of the recipient. Repeated calls succeed.
func (s *NotificationService) MarkAllViewed(ctx context.Context, recipientID string) error {
	if recipientID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	if _, err := s.repo.MarkAllViewed(ctx, recipientID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to mark notifications viewed")
	}
	s.invalidate(ctx, recipientID)
	return nil
}

// Delete removes one notification. A missing id counts as success.
func (s *NotificationService) Delete(ctx context.Context, recipientID, id string) error {
	if err := s.checkOwnership(ctx, recipientID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to delete notification")
	}
	s.invalidate(ctx, recipientID)
	return nil
}

// PurgeExpired deletes expired notifications and returns how many were removed.
func (s *NotificationService) PurgeExpired(ctx context.Context) (int, error) {
	recipients, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to purge notifications")
	}
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		s.invalidate(ctx, r)
	}
	s.logger.Info("expired notifications purged", zap.Int("count", len(recipients)))
	return len(recipients), nil
}

// checkOwnership rejects access to another operator's notification. Missing rows pass through.
func (s *NotificationService) checkOwnership(ctx context.Context, recipientID, id string) error {
	if recipientID == "" || id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recipient and notification id are required")
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Internal(err, "failed to load notification")
	}
	if n.RecipientID != recipientID {
		return appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another operator")
	}
	return nil
}

func (s *NotificationService) invalidate(ctx context.Context, recipientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, unreadKey(recipientID)); err != nil {
		s.logger.Warn("unread cache invalidation failed", zap.Error(err), zap.String("recipient_id", recipientID))
	}
}

func unreadKey(recipientID string) string {
	return "notifications:unread:" + recipientID
}
