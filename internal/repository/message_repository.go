package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// MessageRepository отвечает за переписку по заданиям.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository создаёт экземпляр репозитория.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create сохраняет сообщение.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (assignment_id, sender_id, receiver_id, content, attachments, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		m.AssignmentID, m.SenderID, m.ReceiverID, m.Content, m.Attachments, m.Kind,
	).Scan(&m.ID, &m.IsRead, &m.CreatedAt); err != nil {
		return fmt.Errorf("message repository: create %w", err)
	}
	return nil
}

// ListBetween возвращает сообщения заданного вида строго между двумя пользователями, по возрастанию времени.
func (r *MessageRepository) ListBetween(ctx context.Context, assignmentID, userA, userB uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE assignment_id = $1 AND kind = $4
		  AND ((sender_id = $2 AND receiver_id = $3) OR (sender_id = $3 AND receiver_id = $2))
		ORDER BY created_at ASC, id ASC
	`, assignmentID, userA, userB, kind)
	if err != nil {
		return nil, fmt.Errorf("message repository: list between %w", err)
	}
	return messages, nil
}

// ListByKind возвращает все сообщения задания заданного вида.
func (r *MessageRepository) ListByKind(ctx context.Context, assignmentID uuid.UUID, kind valueobject.MessageKind) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages WHERE assignment_id = $1 AND kind = $2
		ORDER BY created_at ASC, id ASC
	`, assignmentID, kind)
	if err != nil {
		return nil, fmt.Errorf("message repository: list by kind %w", err)
	}
	return messages, nil
}

// MarkRead отмечает прочитанными сообщения задания, адресованные пользователю.
func (r *MessageRepository) MarkRead(ctx context.Context, assignmentID, receiverID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE assignment_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`, assignmentID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("message repository: mark read %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountUnread считает непрочитанные пользовательские сообщения. assignmentID ограничивает подсчёт одним заданием.
func (r *MessageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID, assignmentID *uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE AND kind = 'USER'`
	args := []any{receiverID}
	if assignmentID != nil {
		query += ` AND assignment_id = $2`
		args = append(args, *assignmentID)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("message repository: count unread %w", err)
	}
	return count, nil
}

// insertSystemMessage пишет системную запись в ленту задания внутри транзакции.
func insertSystemMessage(ctx context.Context, tx *sqlx.Tx, assignmentID, senderID, receiverID uuid.UUID, content string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (assignment_id, sender_id, receiver_id, content, kind, is_read)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, assignmentID, senderID, receiverID, content, valueobject.MessageKindSystem)
	if err != nil {
		return fmt.Errorf("message repository: system message %w", err)
	}
	return nil
}
