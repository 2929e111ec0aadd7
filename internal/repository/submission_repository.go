package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// SubmissionRepository отвечает за сданные работы.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository создаёт экземпляр репозитория.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// GetByID возвращает работу.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return common.GetByID[models.Submission](ctx, r.db, "submissions", id, apperror.ErrSubmissionNotFound)
}

// ListByAssignment возвращает работы по заданию, новые сверху.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Submission, error) {
	list := []models.Submission{}
	if err := r.db.SelectContext(ctx, &list, `SELECT * FROM submissions WHERE assignment_id = $1 ORDER BY created_at DESC`, assignmentID); err != nil {
		return nil, fmt.Errorf("submission repository: list %w", err)
	}
	return list, nil
}

// Create сохраняет работу и, если задание было IN_PROGRESS, переводит его в UNDER_REVIEW.
// Задание блокируется на время транзакции, поэтому открытие спора не может пройти между проверкой и вставкой.
func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) (*models.Assignment, error) {
	var assignment *models.Assignment

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		a, err := lockAssignment(ctx, tx, s.AssignmentID)
		if err != nil {
			return err
		}
		if !a.IsDoer(s.UserID) {
			return apperror.ErrForbidden
		}
		switch {
		case a.Status == valueobject.AssignmentStatusInDispute:
			return common.ErrAssignmentInDispute
		case a.Status.IsTerminal():
			return common.ErrAssignmentClosed
		}

		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO submissions (assignment_id, user_id, content, attachments, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, s.AssignmentID, s.UserID, s.Content, s.Attachments, s.Status).Scan(&s.ID, &s.CreatedAt); err != nil {
			return fmt.Errorf("submission repository: create %w", err)
		}

		if a.Status == valueobject.AssignmentStatusInProgress {
			if a, err = setAssignmentStatus(ctx, tx, a.ID, valueobject.AssignmentStatusUnderReview); err != nil {
				return err
			}
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// Review фиксирует решение заказчика. approved завершает задание и выплачивает эскроу,
// rejected возвращает задание в работу.
func (r *SubmissionRepository) Review(ctx context.Context, submissionID uuid.UUID, decision valueobject.SubmissionStatus) (*models.SubmissionReview, error) {
	result := &models.SubmissionReview{}

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		sub, err := common.GetByID[models.Submission](ctx, tx, "submissions", submissionID, apperror.ErrSubmissionNotFound)
		if err != nil {
			return err
		}

		a, err := lockAssignment(ctx, tx, sub.AssignmentID)
		if err != nil {
			return err
		}
		if a.Status != valueobject.AssignmentStatusInProgress && a.Status != valueobject.AssignmentStatusUnderReview {
			return common.ErrNotReviewable
		}

		sub, err = common.GetGuarded[models.Submission](ctx, tx, common.ErrSubmissionReviewed, `
			UPDATE submissions SET status = $2, reviewed_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		`, submissionID, decision)
		if err != nil {
			return err
		}

		next := valueobject.AssignmentStatusInProgress
		if decision == valueobject.SubmissionStatusApproved {
			next = valueobject.AssignmentStatusCompleted
			if result.Payment, err = setPaymentStatus(ctx, tx, a.ID, valueobject.PaymentStatusReleased); err != nil {
				return err
			}
		}
		if a.Status != next {
			if a, err = setAssignmentStatus(ctx, tx, a.ID, next); err != nil {
				return err
			}
		}

		content := "Submission rejected"
		if decision == valueobject.SubmissionStatusApproved {
			content = "Submission approved"
		}
		if err := insertSystemMessage(ctx, tx, a.ID, a.PosterID, sub.UserID, content); err != nil {
			return err
		}

		result.Submission = sub
		result.Assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
