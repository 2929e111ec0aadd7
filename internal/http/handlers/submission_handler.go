package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/dto"
	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

type SubmissionService interface {
	Create(ctx context.Context, actor service.Actor, assignmentID uuid.UUID, content string, attachments any) (*models.Submission, error)
	Review(ctx context.Context, actor service.Actor, submissionID uuid.UUID, status string) (*models.SubmissionReview, error)
	List(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Submission, error)
}

// SubmissionHandler обслуживает сдачу и проверку работ.
type SubmissionHandler struct {
	submissions SubmissionService
	validator   *validation.Validator
}

func NewSubmissionHandler(submissions SubmissionService, v *validation.Validator) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, validator: v}
}

// List обрабатывает GET /tasks/:id/submissions.
func (h *SubmissionHandler) List(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	list, err := h.submissions.List(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, list)
}

// Create обрабатывает POST /tasks/:id/submissions.
func (h *SubmissionHandler) Create(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.SubmissionRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	sub, err := h.submissions.Create(c.Request.Context(), actor, taskID, req.Content, req.Attachments)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, sub)
}

// Review обрабатывает PATCH /submissions/:id/status.
func (h *SubmissionHandler) Review(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.ReviewSubmissionRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.submissions.Review(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
