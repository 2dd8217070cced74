package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type botService interface {
	CreateProcess(ctx context.Context, req dto.BotCreateProcessRequest) (*dto.BotProcessResponse, error)
	ListByPhone(ctx context.Context, phone string) ([]models.Process, error)
}

// BotHandler serves the chat integration.
type BotHandler struct {
	service botService
}

// NewBotHandler builds a new handler.
func NewBotHandler(service botService) *BotHandler {
	return &BotHandler{service: service}
}

// CreateProcess godoc
// @Summary Open a client and a process from a chat conversation
// @Tags Bot
// @Accept json
// @Produce json
// @Param X-Bot-Key header string true "Integration key"
// @Param payload body dto.BotCreateProcessRequest true "Conversation data"
// @Success 201 {object} response.Envelope
// @Router /bot/processes [post]
func (h *BotHandler) CreateProcess(c *gin.Context) {
	var req dto.BotCreateProcessRequest
	if !bindJSON(c, &req, "invalid bot payload") {
		return
	}
	res, err := h.service.CreateProcess(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListByPhone godoc
// @Summary List the processes of a client by phone
// @Tags Bot
// @Produce json
// @Param X-Bot-Key header string true "Integration key"
// @Param phone path string true "Client phone"
// @Success 200 {object} response.Envelope
// @Router /bot/clients/{phone}/processes [get]
func (h *BotHandler) ListByPhone(c *gin.Context) {
	items, err := h.service.ListByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
