package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	"github.com/noah-isme/casetrack-api/internal/service"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type assignmentService interface {
	Assign(ctx context.Context, processID, operatorID string, actor service.Actor) (*models.Process, error)
	AutoAssign(ctx context.Context, processID string, actor service.Actor) (*models.Process, error)
	Release(ctx context.Context, processID string, actor service.Actor) (*models.Process, error)
	Workload(ctx context.Context, filter repository.OperatorFilter) ([]models.Operator, error)
}

type bulkService interface {
	Reassign(ctx context.Context, req dto.BulkReassignRequest, actor service.Actor) (*dto.BulkResult, error)
	UpdatePriority(ctx context.Context, req dto.BulkPriorityRequest, actor service.Actor) (*dto.BulkResult, error)
	UpdateStatus(ctx context.Context, req dto.BulkStatusRequest, actor service.Actor) (*dto.BulkResult, error)
}

// AssignmentHandler exposes ownership and bulk endpoints.
type AssignmentHandler struct {
	assignments assignmentService
	bulk        bulkService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(assignments assignmentService, bulk bulkService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, bulk: bulk}
}

// Assign godoc
// @Summary Assign an unowned process to an operator
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param payload body dto.AssignRequest true "Operator"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /processes/{id}/assign [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if !bindJSON(c, &req, "invalid assign payload") {
		return
	}
	p, err := h.assignments.Assign(c.Request.Context(), c.Param("id"), req.OperatorID, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// AutoAssign godoc
// @Summary Assign a process to the least loaded operator
// @Tags Assignments
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/auto-assign [post]
func (h *AssignmentHandler) AutoAssign(c *gin.Context) {
	p, err := h.assignments.AutoAssign(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Release godoc
// @Summary Clear the operator of a process
// @Tags Assignments
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/assign [delete]
func (h *AssignmentHandler) Release(c *gin.Context) {
	p, err := h.assignments.Release(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Workload godoc
// @Summary List operators with their open process count
// @Tags Assignments
// @Produce json
// @Param role query string false "ADMIN or OPERATOR"
// @Param status query string false "Operator status"
// @Success 200 {object} response.Envelope
// @Router /operators/workload [get]
func (h *AssignmentHandler) Workload(c *gin.Context) {
	filter := repository.OperatorFilter{
		Role:   models.OperatorRole(c.Query("role")),
		Status: models.OperatorStatus(c.Query("status")),
	}
	ops, err := h.assignments.Workload(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ops)
}

// BulkReassign godoc
// @Summary Reassign many processes to one operator
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkReassignRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Router /bulk/reassign [post]
func (h *AssignmentHandler) BulkReassign(c *gin.Context) {
	var req dto.BulkReassignRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	h.bulkResult(c)(h.bulk.Reassign(c.Request.Context(), req, actorFromContext(c)))
}

// BulkPriority godoc
// @Summary Change the priority of many processes
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkPriorityRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Router /bulk/priority [post]
func (h *AssignmentHandler) BulkPriority(c *gin.Context) {
	var req dto.BulkPriorityRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	h.bulkResult(c)(h.bulk.UpdatePriority(c.Request.Context(), req, actorFromContext(c)))
}

// BulkStatus godoc
// @Summary Force a status on many processes
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkStatusRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Router /bulk/status [post]
func (h *AssignmentHandler) BulkStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	h.bulkResult(c)(h.bulk.UpdateStatus(c.Request.Context(), req, actorFromContext(c)))
}

func (h *AssignmentHandler) bulkResult(c *gin.Context) func(*dto.BulkResult, error) {
	return func(res *dto.BulkResult, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, res)
	}
}
