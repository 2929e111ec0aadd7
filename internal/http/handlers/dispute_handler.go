package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/dto"
	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

// DisputeService арбитраж по заданиям.
type DisputeService interface {
	Create(ctx context.Context, actor service.Actor, assignmentID uuid.UUID, reason string, evidence any) (*models.DisputeOpening, error)
	Respond(ctx context.Context, actor service.Actor, disputeID uuid.UUID, response string, evidence any) (*models.Dispute, error)
	AddFollowUp(ctx context.Context, actor service.Actor, disputeID uuid.UUID, message string, evidence any) (*models.DisputeFollowUp, error)
	Resolve(ctx context.Context, actor service.Actor, disputeID uuid.UUID, resolution, status string) (*models.DisputeResolution, error)
	Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Dispute, error)
	GetByAssignment(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, actor service.Actor, f models.DisputeFilter) (*service.DisputePage, error)
}

// DisputeHandler обслуживает споры.
type DisputeHandler struct {
	disputes  DisputeService
	validator *validation.Validator
}

func NewDisputeHandler(disputes DisputeService, v *validation.Validator) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, validator: v}
}

// Create обрабатывает POST /tasks/:id/disputes.
func (h *DisputeHandler) Create(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.CreateDisputeRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	opening, err := h.disputes.Create(c.Request.Context(), actor, taskID, req.Reason, req.Evidence)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, opening)
}

// GetForTask обрабатывает GET /tasks/:id/dispute.
func (h *DisputeHandler) GetForTask(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	d, err := h.disputes.GetByAssignment(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, d)
}

// List обрабатывает GET /disputes.
func (h *DisputeHandler) List(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var q dto.DisputeListQuery
	if err := common.BindQuery(c, h.validator, &q); err != nil {
		response.Error(c, err)
		return
	}

	filter := models.DisputeFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status := valueobject.DisputeStatus(q.Status)
		filter.Status = &status
	}

	page, err := h.disputes.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, page)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	d, err := h.disputes.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, d)
}

// Respond обрабатывает POST /disputes/:id/response.
func (h *DisputeHandler) Respond(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.DisputeResponseRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	d, err := h.disputes.Respond(c.Request.Context(), actor, id, req.Response, req.Evidence)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, d)
}

// FollowUp обрабатывает POST /disputes/:id/follow-ups.
func (h *DisputeHandler) FollowUp(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.DisputeFollowUpRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	f, err := h.disputes.AddFollowUp(c.Request.Context(), actor, id, req.Message, req.Evidence)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, f)
}

// Resolve обрабатывает POST /disputes/:id/resolve. Маршрут закрыт RequireRole(ADMIN),
// сервис проверяет роль повторно.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.disputes.Resolve(c.Request.Context(), actor, id, req.Resolution, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
