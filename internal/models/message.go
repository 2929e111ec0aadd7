package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
)

// Message сообщение в переписке по заданию.
type Message struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	AssignmentID uuid.UUID               `db:"assignment_id" json:"assignment_id"`
	SenderID     uuid.UUID               `db:"sender_id" json:"sender_id"`
	ReceiverID   uuid.UUID               `db:"receiver_id" json:"receiver_id"`
	Content      string                  `db:"content" json:"content"`
	Attachments  Attachments             `db:"attachments" json:"file_urls"`
	Kind         valueobject.MessageKind `db:"kind" json:"kind"`
	IsRead       bool                    `db:"is_read" json:"is_read"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
}

// Notification уведомление пользователя.
type Notification struct {
	ID        uuid.UUID                    `db:"id" json:"id"`
	UserID    uuid.UUID                    `db:"user_id" json:"user_id"`
	Title     string                       `db:"title" json:"title"`
	Message   string                       `db:"message" json:"message"`
	Type      valueobject.NotificationType `db:"type" json:"type"`
	Link      *string                      `db:"link" json:"link,omitempty"`
	IsRead    bool                         `db:"is_read" json:"is_read"`
	CreatedAt time.Time                    `db:"created_at" json:"created_at"`
}
