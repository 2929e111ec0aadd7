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

// TaskService операции над заданиями.
type TaskService interface {
	Create(ctx context.Context, actor service.Actor, in service.AssignmentInput) (*models.Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	List(ctx context.Context, f models.AssignmentFilter) (*service.AssignmentPage, error)
	Update(ctx context.Context, actor service.Actor, id uuid.UUID, in service.AssignmentInput) (*models.Assignment, error)
	Delete(ctx context.Context, actor service.Actor, id uuid.UUID) error
	UpdateStatus(ctx context.Context, actor service.Actor, id uuid.UUID, status string) (*models.Assignment, error)
	GetPayment(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error)
}

// TaskHandler обслуживает /tasks.
type TaskHandler struct {
	tasks     TaskService
	validator *validation.Validator
}

func NewTaskHandler(tasks TaskService, v *validation.Validator) *TaskHandler {
	return &TaskHandler{tasks: tasks, validator: v}
}

// List обрабатывает GET /tasks.
func (h *TaskHandler) List(c *gin.Context) {
	var q dto.TaskListQuery
	if err := common.BindQuery(c, h.validator, &q); err != nil {
		response.Error(c, err)
		return
	}

	filter := models.AssignmentFilter{
		Category:  q.Category,
		Search:    q.Search,
		MinBudget: q.MinBudget,
		MaxBudget: q.MaxBudget,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Status != "" {
		status := valueobject.AssignmentStatus(q.Status)
		filter.Status = &status
	}
	if q.PosterID != "" {
		id := uuid.MustParse(q.PosterID)
		filter.PosterID = &id
	}
	if q.DoerID != "" {
		id := uuid.MustParse(q.DoerID)
		filter.DoerID = &id
	}

	page, err := h.tasks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, page.Items, page.Total, page.Limit, page.Offset)
}

// Get обрабатывает GET /tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

func taskInput(req dto.TaskRequest) service.AssignmentInput {
	return service.AssignmentInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Attachments: req.Attachments,
	}
}

// Create обрабатывает POST /tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TaskRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), actor, taskInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Update обрабатывает PUT /tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.TaskRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), actor, id, taskInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete обрабатывает DELETE /tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "задание удалено")
}

// UpdateStatus обрабатывает PATCH /tasks/:id/status.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.UpdateTaskStatusRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// GetPayment обрабатывает GET /tasks/:id/payment.
func (h *TaskHandler) GetPayment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	payment, err := h.tasks.GetPayment(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, payment)
}
