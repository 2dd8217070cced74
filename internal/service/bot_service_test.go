package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

func TestBotCreateProcessReusesClientByPhone(t *testing.T) {
	ctx := context.Background()
	lc := newLifecycle()
	lc.db.seedOperator(models.Operator{ID: "admin-1", Role: models.RoleAdmin})

	first, err := lc.bot.CreateProcess(ctx, dto.BotCreateProcessRequest{Phone: "+55 11 99999-0000", Name: "Joana", Email: "Joana@Example.com", Type: models.ProcessTypeOpening})
	require.NoError(t, err)
	assert.Equal(t, "5511999990000", first.Client.Phone)
	assert.Equal(t, models.SourceBot, first.Client.Source)
	require.NotNil(t, first.Client.Email)
	assert.Equal(t, "joana@example.com", *first.Client.Email)
	assert.Equal(t, models.SourceBot, first.Process.Source)
	assert.Equal(t, models.ProcessStatusCreated, first.Process.Status)

	second, err := lc.bot.CreateProcess(ctx, dto.BotCreateProcessRequest{Phone: "5511999990000", Name: "Joana", Type: models.ProcessTypeAlteration})
	require.NoError(t, err)
	assert.Equal(t, first.Client.ID, second.Client.ID)
	assert.NotEqual(t, first.Process.ID, second.Process.ID)

	events := lc.db.eventsFor(first.Process.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.SourceBot, events[0].Source)
	assert.Nil(t, events[0].OperatorID)
	assert.Len(t, lc.db.notificationsFor("admin-1"), 2)

	processes, err := lc.bot.ListByPhone(ctx, "(55) 11 99999-0000")
	require.NoError(t, err)
	assert.Len(t, processes, 2)
}

func TestBotCreateProcessValidation(t *testing.T) {
	lc := newLifecycle()

	_, err := lc.bot.CreateProcess(context.Background(), dto.BotCreateProcessRequest{Phone: "12345678", Name: "X", Type: models.ProcessTypeOpening})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = lc.bot.CreateProcess(context.Background(), dto.BotCreateProcessRequest{Phone: "5511999990000", Name: "X", Type: "MERGER"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = lc.bot.ListByPhone(context.Background(), "5511999990000")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBotKeyVerifier(t *testing.T) {
	assert.True(t, NewBotKeyVerifier("s3cret", "").Verify("s3cret"))
	assert.False(t, NewBotKeyVerifier("s3cret", "").Verify("nope"))
	assert.False(t, NewBotKeyVerifier("", "").Verify("anything"))
	assert.False(t, NewBotKeyVerifier("s3cret", "").Verify(""))

	hash, err := HashBotKey("rotated-key")
	require.NoError(t, err)
	hashed := NewBotKeyVerifier("s3cret", hash)
	assert.True(t, hashed.Verify("rotated-key"))
	assert.False(t, hashed.Verify("s3cret"))

	_, err = HashBotKey("  ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("signing-secret", "casetrack")

	token, err := svc.Issue("op-a", models.RoleOperator, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-a", claims.OperatorID)
	assert.False(t, claims.IsAdmin())

	actor := ActorFromClaims(claims)
	assert.Equal(t, "op-a", actor.OperatorID)
	assert.Equal(t, models.SourceManual, actor.Source)

	_, err = NewTokenService("other-secret", "casetrack").ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	expired, err := svc.Issue("op-a", models.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	unknownRole, err := svc.Issue("op-a", "GUEST", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unknownRole)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
