package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type, link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, n.UserID, n.Title, n.Message, n.Type, n.Link).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}
	return nil
}

// List возвращает уведомления пользователя с пагинацией и общее количество.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	where := sq.And{sq.Eq{"user_id": userID}}
	if unreadOnly {
		where = append(where, sq.Eq{"is_read": false})
	}

	total, err := common.CountBuilder(ctx, r.db, common.Psql().Select("COUNT(*)").From("notifications").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("notification repository: count %w", err)
	}

	limit, offset = common.Page(limit, offset, 20, 100)
	list := []models.Notification{}
	if err := common.SelectBuilder(ctx, r.db, &list, common.Psql().
		Select("*").
		From("notifications").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))); err != nil {
		return nil, 0, fmt.Errorf("notification repository: list %w", err)
	}
	return list, total, nil
}

// MarkRead отмечает уведомление пользователя прочитанным.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notification repository: mark read %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead отмечает все уведомления пользователя прочитанными.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("notification repository: mark all read %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}
	return count, nil
}
