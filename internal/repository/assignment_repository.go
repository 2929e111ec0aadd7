package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// AssignmentRepository отвечает за таблицу assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository создаёт экземпляр репозитория.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create сохраняет новое задание в статусе OPEN.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (title, description, category, budget, deadline, status, poster_id, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		a.Title, a.Description, a.Category, a.Budget, a.Deadline, a.Status, a.PosterID, a.Attachments,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("assignment repository: create %w", err)
	}
	return nil
}

// GetByID возвращает задание.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return common.GetByID[models.Assignment](ctx, r.db, "assignments", id, apperror.ErrAssignmentNotFound)
}

// List возвращает страницу заданий по фильтру и общее количество.
func (r *AssignmentRepository) List(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, int, error) {
	where := sq.And{}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.Category != "" {
		where = append(where, sq.Eq{"category": f.Category})
	}
	if f.MinBudget != nil {
		where = append(where, sq.GtOrEq{"budget": *f.MinBudget})
	}
	if f.MaxBudget != nil {
		where = append(where, sq.LtOrEq{"budget": *f.MaxBudget})
	}
	if f.PosterID != nil {
		where = append(where, sq.Eq{"poster_id": *f.PosterID})
	}
	if f.DoerID != nil {
		where = append(where, sq.Eq{"doer_id": *f.DoerID})
	}
	if f.Search != "" {
		pattern := common.ContainsPattern(f.Search)
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}

	total, err := common.CountBuilder(ctx, r.db, common.Psql().Select("COUNT(*)").From("assignments").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("assignment repository: count %w", err)
	}

	limit, offset := common.Page(f.Limit, f.Offset, 20, 100)
	list := make([]models.Assignment, 0, limit)
	builder := common.Psql().
		Select("*").
		From("assignments").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if err := common.SelectBuilder(ctx, r.db, &list, builder); err != nil {
		return nil, 0, fmt.Errorf("assignment repository: list %w", err)
	}

	return list, total, nil
}

// UpdateOpen меняет условия задания, пока оно открыто и принадлежит заказчику.
func (r *AssignmentRepository) UpdateOpen(ctx context.Context, a *models.Assignment) error {
	updated, err := common.GetGuarded[models.Assignment](ctx, r.db, common.ErrAssignmentNotOpen, `
		UPDATE assignments
		SET title = $3, description = $4, category = $5, budget = $6, deadline = $7, attachments = $8, updated_at = NOW()
		WHERE id = $1 AND poster_id = $2 AND status = 'OPEN'
		RETURNING *
	`, a.ID, a.PosterID, a.Title, a.Description, a.Category, a.Budget, a.Deadline, a.Attachments)
	if err != nil {
		return err
	}
	*a = *updated
	return nil
}

// DeleteOpen удаляет открытое задание заказчика.
func (r *AssignmentRepository) DeleteOpen(ctx context.Context, id, posterID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1 AND poster_id = $2 AND status = 'OPEN'`, id, posterID)
	if err != nil {
		return fmt.Errorf("assignment repository: delete %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrAssignmentNotOpen
	}
	return nil
}

// UpdateStatus переводит задание из from в to, только если статус не изменился с момента чтения.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AssignmentStatus) (*models.Assignment, error) {
	return common.GetGuarded[models.Assignment](ctx, r.db, common.ErrAssignmentStateChanged, `
		UPDATE assignments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`, id, from, to)
}

// lockAssignment читает задание с блокировкой строки до конца транзакции.
// Все многострочные переходы начинают с неё, чтобы конкурирующие операции шли по очереди.
func lockAssignment(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Assignment, error) {
	return common.GetGuarded[models.Assignment](ctx, tx, apperror.ErrAssignmentNotFound,
		`SELECT * FROM assignments WHERE id = $1 FOR UPDATE`, id)
}

// setAssignmentStatus выставляет статус внутри транзакции, когда строка уже заблокирована.
func setAssignmentStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status valueobject.AssignmentStatus) (*models.Assignment, error) {
	return common.GetGuarded[models.Assignment](ctx, tx, apperror.ErrAssignmentNotFound, `
		UPDATE assignments SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, status)
}
