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

// MessageService переписка по заданию.
type MessageService interface {
	Send(ctx context.Context, actor service.Actor, assignmentID, receiverID uuid.UUID, content string, attachments any) (*models.Message, error)
	GetMessages(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Message, error)
	GetActivity(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) ([]models.Message, error)
	UnreadCount(ctx context.Context, actor service.Actor) (int, error)
	AssignmentUnreadCount(ctx context.Context, actor service.Actor, assignmentID uuid.UUID) (int, error)
}

// MessageHandler обслуживает чат задания.
type MessageHandler struct {
	messages  MessageService
	validator *validation.Validator
}

func NewMessageHandler(messages MessageService, v *validation.Validator) *MessageHandler {
	return &MessageHandler{messages: messages, validator: v}
}

// List обрабатывает GET /tasks/:id/messages. Чтение отмечает входящие прочитанными.
func (h *MessageHandler) List(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	list, err := h.messages.GetMessages(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, list)
}

// Send обрабатывает POST /tasks/:id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), actor, taskID, req.ReceiverID, req.Content, req.FileURLs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

// Activity обрабатывает GET /tasks/:id/activity.
func (h *MessageHandler) Activity(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	list, err := h.messages.GetActivity(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, list)
}

// UnreadCount обрабатывает GET /messages/unread-count.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.CountResponse{Count: count})
}

// TaskUnreadCount обрабатывает GET /tasks/:id/messages/unread-count.
func (h *MessageHandler) TaskUnreadCount(c *gin.Context) {
	actor, taskID, ok := actorAndID(c)
	if !ok {
		return
	}

	count, err := h.messages.AssignmentUnreadCount(c.Request.Context(), actor, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.CountResponse{Count: count})
}
