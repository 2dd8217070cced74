package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type timelineRecorder interface {
	Record(ctx context.Context, entry TimelineEntry) (*models.TimelineEvent, error)
}

type notifier interface {
	Notify(ctx context.Context, in models.NotificationInput)
}

// Actor identifies who triggered an operation.
type Actor struct {
	OperatorID string
	Role       models.OperatorRole
	Source     models.Source
}

// ActorFromClaims maps an authenticated operator into an Actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{Source: models.SourceSystem}
	}
	return Actor{OperatorID: claims.OperatorID, Role: claims.Role, Source: models.SourceManual}
}

// SystemActor is used by integrations and tooling that act without an operator.
func SystemActor(source models.Source) Actor {
	return Actor{Source: source}
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) operatorRef() *string {
	if a.OperatorID == "" {
		return nil
	}
	id := a.OperatorID
	return &id
}

func (a Actor) source() models.Source {
	if a.Source == "" {
		return models.SourceManual
	}
	return a.Source
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}

func lookupErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to load "+what)
}

func strPtr(v string) *string {
	return &v
}

func utcNow() time.Time {
	return time.Now().UTC()
}
