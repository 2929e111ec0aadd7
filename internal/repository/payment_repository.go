package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// PaymentRepository отвечает за эскроу-платежи.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт экземпляр репозитория.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetByAssignment возвращает платёж по заданию.
func (r *PaymentRepository) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM payments WHERE assignment_id = $1`, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by assignment %w", err)
	}
	return &p, nil
}

// HasFinal сообщает, завершён ли платёж по заданию (RELEASED или REFUNDED).
func (r *PaymentRepository) HasFinal(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE assignment_id = $1 AND status IN ('RELEASED', 'REFUNDED'))
	`, assignmentID)
	if err != nil {
		return false, fmt.Errorf("payment repository: has final %w", err)
	}
	return exists, nil
}

func insertPayment(ctx context.Context, tx *sqlx.Tx, assignmentID uuid.UUID, amount float64) (*models.Payment, error) {
	var p models.Payment
	if err := tx.GetContext(ctx, &p, `
		INSERT INTO payments (assignment_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING *
	`, assignmentID, amount, valueobject.PaymentStatusPending); err != nil {
		if common.IsUniqueViolation(err, "") {
			return nil, common.ErrAssignmentNotOpen
		}
		return nil, fmt.Errorf("payment repository: insert %w", err)
	}
	return &p, nil
}

// lockPayment читает платёж задания с блокировкой строки.
func lockPayment(ctx context.Context, tx *sqlx.Tx, assignmentID uuid.UUID) (*models.Payment, error) {
	return common.GetGuarded[models.Payment](ctx, tx, apperror.ErrPaymentNotFound,
		`SELECT * FROM payments WHERE assignment_id = $1 FOR UPDATE`, assignmentID)
}

// setPaymentStatus меняет статус, пока платёж не завершён.
func setPaymentStatus(ctx context.Context, tx *sqlx.Tx, assignmentID uuid.UUID, status valueobject.PaymentStatus) (*models.Payment, error) {
	return common.GetGuarded[models.Payment](ctx, tx, common.ErrPaymentFinalized, `
		UPDATE payments SET status = $2, updated_at = NOW()
		WHERE assignment_id = $1 AND status NOT IN ('RELEASED', 'REFUNDED')
		RETURNING *
	`, assignmentID, status)
}
