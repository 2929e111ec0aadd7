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

// BidService операции над откликами.
type BidService interface {
	Submit(ctx context.Context, actor service.Actor, assignmentID uuid.UUID, content string, amount float64) (*models.Bid, error)
	Accept(ctx context.Context, actor service.Actor, bidID uuid.UUID) (*models.AcceptBidResult, error)
	Reject(ctx context.Context, actor service.Actor, bidID uuid.UUID) (*models.Bid, error)
	Update(ctx context.Context, actor service.Actor, bidID uuid.UUID, content string, amount float64) (*models.Bid, error)
	Withdraw(ctx context.Context, actor service.Actor, bidID uuid.UUID) error
	ListForAssignment(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Bid, error)
	ListMine(ctx context.Context, actor service.Actor) ([]models.Bid, error)
}

// BidHandler обслуживает отклики.
type BidHandler struct {
	bids      BidService
	validator *validation.Validator
}

func NewBidHandler(bids BidService, v *validation.Validator) *BidHandler {
	return &BidHandler{bids: bids, validator: v}
}

// actorAndID общая подготовка для маршрутов вида /<resource>/:id.
func actorAndID(c *gin.Context) (service.Actor, uuid.UUID, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// ListForTask обрабатывает GET /tasks/:id/bids.
func (h *BidHandler) ListForTask(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	bids, err := h.bids.ListForAssignment(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bids)
}

// Submit обрабатывает POST /tasks/:id/bids.
func (h *BidHandler) Submit(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.BidRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	bid, err := h.bids.Submit(c.Request.Context(), actor, taskID, req.Content, req.BidAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, bid)
}

// ListMine обрабатывает GET /bids/mine.
func (h *BidHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	bids, err := h.bids.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bids)
}

// Update обрабатывает PUT /bids/:id.
func (h *BidHandler) Update(c *gin.Context) {
	actor, bidID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.BidRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	bid, err := h.bids.Update(c.Request.Context(), actor, bidID, req.Content, req.BidAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bid)
}

// Withdraw обрабатывает DELETE /bids/:id.
func (h *BidHandler) Withdraw(c *gin.Context) {
	actor, bidID, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.bids.Withdraw(c.Request.Context(), actor, bidID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "отклик отозван")
}

// Accept обрабатывает POST /bids/:id/accept.
func (h *BidHandler) Accept(c *gin.Context) {
	actor, bidID, ok := actorAndID(c)
	if !ok {
		return
	}

	result, err := h.bids.Accept(c.Request.Context(), actor, bidID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reject обрабатывает POST /bids/:id/reject.
func (h *BidHandler) Reject(c *gin.Context) {
	actor, bidID, ok := actorAndID(c)
	if !ok {
		return
	}

	bid, err := h.bids.Reject(c.Request.Context(), actor, bidID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bid)
}
