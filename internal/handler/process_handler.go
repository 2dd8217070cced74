package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type processService interface {
	Get(ctx context.Context, id string) (*models.Process, error)
	CreateProcess(ctx context.Context, req dto.CreateProcessRequest, actor service.Actor) (*models.Process, error)
	StartProcess(ctx context.Context, id string, actor service.Actor) (*models.Process, error)
	AdvanceStep(ctx context.Context, id string, req dto.AdvanceStepRequest, actor service.Actor) (*models.Process, error)
	UpdatePendingData(ctx context.Context, id string, req dto.UpdatePendingDataRequest, actor service.Actor) (*models.Process, error)
	RecordPayment(ctx context.Context, id string, req dto.PaymentRequest, actor service.Actor) (*models.Process, error)
	Complete(ctx context.Context, id string, actor service.Actor) (*models.Process, error)
	Cancel(ctx context.Context, id, reason string, actor service.Actor) (*models.Process, error)
	Reject(ctx context.Context, id, reason string, actor service.Actor) (*models.Process, error)
	ChangeStatus(ctx context.Context, id string, req dto.StatusChangeRequest, actor service.Actor) (*models.Process, error)
	UpdateField(ctx context.Context, id string, kind models.EntityKind, req dto.UpdateFieldRequest, actor service.Actor) (*service.FieldUpdateResult, error)
}

// ProcessHandler exposes the lifecycle state machine.
type ProcessHandler struct {
	service processService
}

// NewProcessHandler builds a new handler.
func NewProcessHandler(service processService) *ProcessHandler {
	return &ProcessHandler{service: service}
}

// Steps godoc
// @Summary List the review step table
// @Tags Processes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /processes/steps [get]
func (h *ProcessHandler) Steps(c *gin.Context) {
	response.OK(c, service.Steps())
}

// Create godoc
// @Summary Open a process for an existing client
// @Tags Processes
// @Accept json
// @Produce json
// @Param payload body dto.CreateProcessRequest true "Process payload"
// @Success 201 {object} response.Envelope
// @Router /processes [post]
func (h *ProcessHandler) Create(c *gin.Context) {
	var req dto.CreateProcessRequest
	if !bindJSON(c, &req, "invalid process payload") {
		return
	}
	p, err := h.service.CreateProcess(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Get godoc
// @Summary Get a process
// @Tags Processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id} [get]
func (h *ProcessHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Start godoc
// @Summary Start analysing a CREATED process
// @Tags Processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/start [post]
func (h *ProcessHandler) Start(c *gin.Context) {
	h.respond(c)(h.service.StartProcess(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

// AdvanceStep godoc
// @Summary Advance a process through the step table
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.AdvanceStepRequest true "Step payload"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/steps [post]
func (h *ProcessHandler) AdvanceStep(c *gin.Context) {
	var req dto.AdvanceStepRequest
	if !bindJSON(c, &req, "invalid step payload") {
		return
	}
	h.respond(c)(h.service.AdvanceStep(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdatePendingData godoc
// @Summary Overwrite the pending data requirements
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.UpdatePendingDataRequest true "Pending items"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/pending-data [put]
func (h *ProcessHandler) UpdatePendingData(c *gin.Context) {
	var req dto.UpdatePendingDataRequest
	if !bindJSON(c, &req, "invalid pending data payload") {
		return
	}
	h.respond(c)(h.service.UpdatePendingData(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// RecordPayment godoc
// @Summary Record a payment state reported by the payment provider
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.PaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/payment [post]
func (h *ProcessHandler) RecordPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if !bindJSON(c, &req, "invalid payment payload") {
		return
	}
	h.respond(c)(h.service.RecordPayment(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// Complete godoc
// @Summary Complete an approved process
// @Tags Processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/complete [post]
func (h *ProcessHandler) Complete(c *gin.Context) {
	h.respond(c)(h.service.Complete(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

// Cancel godoc
// @Summary Cancel a process
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.StatusChangeRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/cancel [post]
func (h *ProcessHandler) Cancel(c *gin.Context) {
	var req dto.StatusChangeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid cancel payload") {
		return
	}
	h.respond(c)(h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason, actorFromContext(c)))
}

// Reject godoc
// @Summary Reject a process
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.StatusChangeRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/reject [post]
func (h *ProcessHandler) Reject(c *gin.Context) {
	var req dto.StatusChangeRequest
	if !bindJSON(c, &req, "invalid reject payload") {
		return
	}
	h.respond(c)(h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, actorFromContext(c)))
}

// ChangeStatus godoc
// @Summary Override the status of a process
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.StatusChangeRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/status [patch]
func (h *ProcessHandler) ChangeStatus(c *gin.Context) {
	var req dto.StatusChangeRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	h.respond(c)(h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateClientField godoc
// @Summary Update one field of the process client
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.UpdateFieldRequest true "Field payload"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/client [patch]
func (h *ProcessHandler) UpdateClientField(c *gin.Context) {
	h.updateField(c, models.EntityClient)
}

// UpdateCompanyField godoc
// @Summary Update one field of the process company
// @Tags Processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.UpdateFieldRequest true "Field payload"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/company [patch]
func (h *ProcessHandler) UpdateCompanyField(c *gin.Context) {
	h.updateField(c, models.EntityCompany)
}

func (h *ProcessHandler) updateField(c *gin.Context, kind models.EntityKind) {
	var req dto.UpdateFieldRequest
	if !bindJSON(c, &req, "invalid field payload") {
		return
	}
	res, err := h.service.UpdateField(c.Request.Context(), c.Param("id"), kind, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func (h *ProcessHandler) respond(c *gin.Context) func(*models.Process, error) {
	return func(p *models.Process, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, p)
	}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
