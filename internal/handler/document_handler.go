package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type documentService interface {
	Submit(ctx context.Context, processID string, req dto.SubmitDocumentRequest, actor service.Actor) (*models.Document, error)
	Review(ctx context.Context, processID, documentID string, req dto.ReviewDocumentRequest, actor service.Actor) (*models.Document, error)
	List(ctx context.Context, processID string) ([]models.Document, error)
}

// DocumentHandler exposes document submission and review.
type DocumentHandler struct {
	service  documentService
	maxBytes int64
}

// NewDocumentHandler builds a handler. Uploads are read up to maxBytes+1 so the service can reject oversize files.
func NewDocumentHandler(service documentService, maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &DocumentHandler{service: service, maxBytes: maxBytes}
}

// Submit godoc
// @Summary Upload a document for a process
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Process ID"
// @Param type formData string true "Document type"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Router /processes/{id}/documents [post]
func (h *DocumentHandler) Submit(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read file"))
		return
	}

	req := dto.SubmitDocumentRequest{
		Type:        c.PostForm("type"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	doc, err := h.service.Submit(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents of a process
// @Tags Documents
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, docs)
}

// Review godoc
// @Summary Verify or reject a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param documentId path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/documents/{documentId}/review [post]
func (h *DocumentHandler) Review(c *gin.Context) {
	var req dto.ReviewDocumentRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	doc, err := h.service.Review(c.Request.Context(), c.Param("id"), c.Param("documentId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}
