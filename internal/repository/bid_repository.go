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

// BidRepository отвечает за отклики и транзакцию их принятия.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт экземпляр репозитория.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create сохраняет отклик. Повторный отклик того же исполнителя отсекается уникальным ключом.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (assignment_id, user_id, content, bid_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		bid.AssignmentID, bid.UserID, bid.Content, bid.BidAmount, bid.Status,
	).Scan(&bid.ID, &bid.CreatedAt, &bid.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err, "bids_user_assignment_key") {
			return common.ErrDuplicateBid
		}
		return fmt.Errorf("bid repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отклик.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return common.GetByID[models.Bid](ctx, r.db, "bids", id, apperror.ErrBidNotFound)
}

// FindByAssignmentAndUser возвращает отклик исполнителя на задание или nil.
func (r *BidRepository) FindByAssignmentAndUser(ctx context.Context, assignmentID, userID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `SELECT * FROM bids WHERE assignment_id = $1 AND user_id = $2`, assignmentID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bid repository: find by assignment and user %w", err)
	}
	return &bid, nil
}

// ListByAssignment возвращает отклики на задание, новые сверху.
func (r *BidRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Bid, error) {
	bids := []models.Bid{}
	if err := r.db.SelectContext(ctx, &bids, `SELECT * FROM bids WHERE assignment_id = $1 ORDER BY created_at DESC`, assignmentID); err != nil {
		return nil, fmt.Errorf("bid repository: list by assignment %w", err)
	}
	return bids, nil
}

// ListByUser возвращает отклики исполнителя.
func (r *BidRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Bid, error) {
	bids := []models.Bid{}
	if err := r.db.SelectContext(ctx, &bids, `SELECT * FROM bids WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("bid repository: list by user %w", err)
	}
	return bids, nil
}

// UpdatePending меняет текст и сумму отклика, пока он не рассмотрен.
func (r *BidRepository) UpdatePending(ctx context.Context, bid *models.Bid) error {
	updated, err := common.GetGuarded[models.Bid](ctx, r.db, common.ErrBidNotPending, `
		UPDATE bids SET content = $3, bid_amount = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING *
	`, bid.ID, bid.UserID, bid.Content, bid.BidAmount)
	if err != nil {
		return err
	}
	*bid = *updated
	return nil
}

// DeletePending удаляет отклик, пока он не рассмотрен.
func (r *BidRepository) DeletePending(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bids WHERE id = $1 AND user_id = $2 AND status = 'pending'`, id, userID)
	if err != nil {
		return fmt.Errorf("bid repository: delete %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrBidNotPending
	}
	return nil
}

// Reject отклоняет один отклик на открытое задание.
func (r *BidRepository) Reject(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return common.GetGuarded[models.Bid](ctx, r.db, common.ErrBidNotPending, `
		UPDATE bids SET status = 'rejected', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		  AND EXISTS (SELECT 1 FROM assignments a WHERE a.id = bids.assignment_id AND a.status = 'OPEN')
		RETURNING *
	`, id)
}

// Accept принимает отклик одной транзакцией: задание получает исполнителя,
// остальные отклики отклоняются, создаётся эскроу-платёж и системная запись в переписке.
func (r *BidRepository) Accept(ctx context.Context, bidID uuid.UUID) (*models.AcceptBidResult, error) {
	result := &models.AcceptBidResult{}

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		bid, err := common.GetGuarded[models.Bid](ctx, tx, apperror.ErrBidNotFound,
			`SELECT * FROM bids WHERE id = $1`, bidID)
		if err != nil {
			return err
		}

		// Условие на OPEN и пустого исполнителя: из двух параллельных принятий проходит одно.
		assignment, err := common.GetGuarded[models.Assignment](ctx, tx, common.ErrAssignmentNotOpen, `
			UPDATE assignments SET status = $2, doer_id = $3, updated_at = NOW()
			WHERE id = $1 AND status = 'OPEN' AND doer_id IS NULL
			RETURNING *
		`, bid.AssignmentID, valueobject.AssignmentStatusAssigned, bid.UserID)
		if err != nil {
			return err
		}

		accepted, err := common.GetGuarded[models.Bid](ctx, tx, common.ErrBidNotPending, `
			UPDATE bids SET status = 'accepted', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		`, bidID)
		if err != nil {
			return err
		}

		rejected := []models.Bid{}
		if err := tx.SelectContext(ctx, &rejected, `
			UPDATE bids SET status = 'rejected', updated_at = NOW()
			WHERE assignment_id = $1 AND id <> $2 AND status <> 'rejected'
			RETURNING *
		`, bid.AssignmentID, bidID); err != nil {
			return fmt.Errorf("bid repository: reject siblings %w", err)
		}

		payment, err := insertPayment(ctx, tx, assignment.ID, accepted.BidAmount)
		if err != nil {
			return err
		}

		if err := insertSystemMessage(ctx, tx, assignment.ID, assignment.PosterID, bid.UserID,
			fmt.Sprintf("Bid accepted: %.2f", accepted.BidAmount)); err != nil {
			return err
		}

		result.Assignment = assignment
		result.Accepted = accepted
		result.Rejected = rejected
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
