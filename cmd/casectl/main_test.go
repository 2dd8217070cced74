package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBotHashKeyRunsOffline(t *testing.T) {
	out, err := execute(t, "bot", "hash-key", "rotated-key")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("rotated-key")))
	assert.True(t, service.NewBotKeyVerifier("", hash).Verify("rotated-key"))
}

func TestTokenIssueUsesConfiguredSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "issue", "op-a", "--role", "ADMIN", "--ttl", "5m")
	require.NoError(t, err)

	claims, err := service.NewTokenService("cli-secret", "casetrack").ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "op-a", claims.OperatorID)
	assert.True(t, claims.IsAdmin())

	_, err = execute(t, "token", "issue", "op-a", "--role", "GUEST")
	assert.ErrorContains(t, err, "unknown role")
}

func TestActorRequiresFlag(t *testing.T) {
	empty := ""
	_, err := newCommandContext(&empty).actor()
	assert.Error(t, err)

	id := "admin-1"
	actor, err := newCommandContext(&id).actor()
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, actor.Role)
	assert.Equal(t, models.SourceSystem, actor.Source)
}

func TestRenderers(t *testing.T) {
	out := renderWorkload([]models.Operator{{ID: "op-a", Name: "Ana", Role: models.RoleOperator, ProcessesCount: 3}})
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "3")

	out = renderBulkResult(&dto.BulkResult{Updated: 1, ProcessIDs: []string{"p1"}, Skipped: []string{"p2"}})
	assert.Contains(t, out, "skipped (terminal)")
	assert.Contains(t, out, "Updated: 1")
}
