package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

// BotService backs the chat integration: clients are keyed by normalized phone digits.
type BotService struct {
	tx        transactor
	clients   clientStore
	processes *ProcessService
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewBotService constructs the service.
func NewBotService(tx transactor, clients clientStore, processes *ProcessService, logger *zap.Logger) *BotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotService{tx: tx, clients: clients, processes: processes, validate: validator.New(), logger: logger}
}

// CreateProcess finds or creates the client by phone and opens a BOT process in one transaction.
func (s *BotService) CreateProcess(ctx context.Context, req dto.BotCreateProcessRequest) (*dto.BotProcessResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bot payload")
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	actor := SystemActor(models.SourceBot)

	var resp dto.BotProcessResponse
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		client, err := s.clients.GetByPhone(ctx, phone)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Internal(err, "failed to load client")
			}
			client = &models.Client{Name: strings.TrimSpace(req.Name), Phone: phone, Source: models.SourceBot}
			if email := strings.TrimSpace(req.Email); email != "" {
				client.Email = strPtr(strings.ToLower(email))
			}
			if err := s.clients.Create(ctx, client); err != nil {
				return appErrors.Internal(err, "failed to create client")
			}
		}
		p, err := s.processes.create(ctx, dto.CreateProcessRequest{ClientID: client.ID, Type: req.Type, Source: models.SourceBot}, actor)
		if err != nil {
			return err
		}
		resp.Client = *client
		resp.Process = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.processes.notifyCreated(ctx, &resp.Process)
	s.logger.Info("bot process created", zap.String("process_id", resp.Process.ID), zap.String("client_id", resp.Client.ID))
	return &resp, nil
}

// ListByPhone returns the processes of the client owning phone.
func (s *BotService) ListByPhone(ctx context.Context, rawPhone string) ([]models.Process, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByPhone(ctx, phone)
	if err != nil {
		return nil, lookupErr(err, "client")
	}
	return s.processes.ListByClient(ctx, client.ID)
}

// BotKeyVerifier checks the shared integration key. A bcrypt hash takes precedence over the plain key.
type BotKeyVerifier struct {
	plain []byte
	hash  []byte
}

// NewBotKeyVerifier builds a verifier. With neither value set every key is refused.
func NewBotKeyVerifier(plain, hash string) *BotKeyVerifier {
	return &BotKeyVerifier{plain: []byte(plain), hash: []byte(hash)}
}

// Verify reports whether key matches the configured secret.
func (v *BotKeyVerifier) Verify(key string) bool {
	if v == nil || key == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
	}
	if len(v.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.plain, []byte(key)) == 1
}

// HashBotKey produces the value stored in BOT_API_KEY_HASH.
func HashBotKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "key is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash key")
	}
	return string(hash), nil
}
