package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest тело POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name" validate:"omitempty,max=100"`
	Role     string `json:"role" validate:"omitempty,user-role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest используется для refresh и logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Image *string `json:"image" validate:"omitempty,url"`
}

// TaskRequest тело создания и редактирования задания.
// Вложения принимаются в любой из поддерживаемых форм и нормализуются сервисом.
type TaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required"`
	Category    string     `json:"category" validate:"omitempty,max=100"`
	Budget      float64    `json:"budget" validate:"gt=0"`
	Deadline    *time.Time `json:"deadline" validate:"omitempty,future"`
	Attachments any        `json:"attachments"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,task-status"`
}

// TaskListQuery параметры GET /tasks.
type TaskListQuery struct {
	Status    string   `form:"status" validate:"omitempty,task-status"`
	Category  string   `form:"category"`
	Search    string   `form:"search"`
	MinBudget *float64 `form:"min_budget" validate:"omitempty,gte=0"`
	MaxBudget *float64 `form:"max_budget" validate:"omitempty,gte=0"`
	PosterID  string   `form:"poster_id" validate:"omitempty,uuid"`
	DoerID    string   `form:"doer_id" validate:"omitempty,uuid"`
	Limit     int      `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int      `form:"offset" validate:"omitempty,min=0"`
}

type BidRequest struct {
	Content   string  `json:"content" validate:"required"`
	BidAmount float64 `json:"bid_amount" validate:"gt=0"`
}

type SubmissionRequest struct {
	Content     string `json:"content" validate:"required"`
	Attachments any    `json:"attachments"`
}

// ReviewSubmissionRequest решение заказчика: approved, accepted или rejected.
type ReviewSubmissionRequest struct {
	Status string `json:"status" validate:"required,review-decision"`
}

// SendMessageRequest пустой content допустим, если есть файлы.
type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content" validate:"max=5000"`
	FileURLs   any       `json:"file_urls"`
}

type CreateDisputeRequest struct {
	Reason   string `json:"reason" validate:"required"`
	Evidence any    `json:"evidence"`
}

type DisputeResponseRequest struct {
	Response string `json:"response" validate:"required"`
	Evidence any    `json:"evidence"`
}

type DisputeFollowUpRequest struct {
	Message  string `json:"message" validate:"required"`
	Evidence any    `json:"evidence"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required"`
	Status     string `json:"status" validate:"required,resolution-status"`
}

// DisputeListQuery параметры GET /disputes.
type DisputeListQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=OPEN RESOLVED_RELEASE RESOLVED_REFUND"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}
