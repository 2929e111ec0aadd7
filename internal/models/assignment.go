package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
)

// Assignment задание, опубликованное заказчиком.
type Assignment struct {
	ID          uuid.UUID                    `db:"id" json:"id"`
	Title       string                       `db:"title" json:"title"`
	Description string                       `db:"description" json:"description"`
	Category    string                       `db:"category" json:"category"`
	Budget      float64                      `db:"budget" json:"budget"`
	Deadline    *time.Time                   `db:"deadline" json:"deadline,omitempty"`
	Status      valueobject.AssignmentStatus `db:"status" json:"status"`
	PosterID    uuid.UUID                    `db:"poster_id" json:"poster_id"`
	DoerID      *uuid.UUID                   `db:"doer_id" json:"doer_id,omitempty"`
	Attachments Attachments                  `db:"attachments" json:"attachments"`
	CreatedAt   time.Time                    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                    `db:"updated_at" json:"updated_at"`
}

// IsPoster сообщает, является ли пользователь автором задания.
func (a *Assignment) IsPoster(userID uuid.UUID) bool {
	return a.PosterID == userID
}

// IsDoer сообщает, назначен ли пользователь исполнителем.
func (a *Assignment) IsDoer(userID uuid.UUID) bool {
	return a.DoerID != nil && *a.DoerID == userID
}

// IsParticipant сообщает, является ли пользователь одной из сторон задания.
func (a *Assignment) IsParticipant(userID uuid.UUID) bool {
	return a.IsPoster(userID) || a.IsDoer(userID)
}

// Counterparty возвращает вторую сторону для участника задания.
func (a *Assignment) Counterparty(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case a.IsPoster(userID) && a.DoerID != nil:
		return *a.DoerID, true
	case a.IsDoer(userID):
		return a.PosterID, true
	}
	return uuid.Nil, false
}

// AssignmentFilter параметры поиска заданий.
type AssignmentFilter struct {
	Status    *valueobject.AssignmentStatus
	Category  string
	MinBudget *float64
	MaxBudget *float64
	Search    string
	PosterID  *uuid.UUID
	DoerID    *uuid.UUID
	Limit     int
	Offset    int
}

// Bid отклик исполнителя на задание.
type Bid struct {
	ID           uuid.UUID             `db:"id" json:"id"`
	AssignmentID uuid.UUID             `db:"assignment_id" json:"assignment_id"`
	UserID       uuid.UUID             `db:"user_id" json:"user_id"`
	Content      string                `db:"content" json:"content"`
	BidAmount    float64               `db:"bid_amount" json:"bid_amount"`
	Status       valueobject.BidStatus `db:"status" json:"status"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updated_at"`
}

// BidNotice краткая запись об отклике для канала задания.
// Текст, сумма и автор видны только заказчику.
type BidNotice struct {
	ID           uuid.UUID `json:"id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notice возвращает краткую запись об отклике.
func (b *Bid) Notice() BidNotice {
	return BidNotice{ID: b.ID, AssignmentID: b.AssignmentID, CreatedAt: b.CreatedAt}
}

// Submission сданная исполнителем работа.
type Submission struct {
	ID           uuid.UUID                    `db:"id" json:"id"`
	AssignmentID uuid.UUID                    `db:"assignment_id" json:"assignment_id"`
	UserID       uuid.UUID                    `db:"user_id" json:"user_id"`
	Content      string                       `db:"content" json:"content"`
	Attachments  Attachments                  `db:"attachments" json:"attachments"`
	Status       valueobject.SubmissionStatus `db:"status" json:"status"`
	CreatedAt    time.Time                    `db:"created_at" json:"created_at"`
	ReviewedAt   *time.Time                   `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// AcceptBidResult итог принятия отклика.
type AcceptBidResult struct {
	Assignment *Assignment `json:"assignment"`
	Accepted   *Bid        `json:"accepted"`
	Rejected   []Bid       `json:"rejected"`
	Payment    *Payment    `json:"payment"`
}

// SubmissionReview итог проверки работы заказчиком. Payment заполнен только при одобрении.
type SubmissionReview struct {
	Submission *Submission `json:"submission"`
	Assignment *Assignment `json:"assignment"`
	Payment    *Payment    `json:"payment,omitempty"`
}
