package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

// Имя частичного индекса, допускающего один открытый спор на задание.
const oneOpenDisputeIndex = "idx_disputes_one_open"

// DisputeRepository отвечает за споры и их ветку обсуждения.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open открывает спор одной транзакцией: спор, задание IN_DISPUTE, платёж DISPUTED.
func (r *DisputeRepository) Open(ctx context.Context, d *models.Dispute) (*models.DisputeOpening, error) {
	result := &models.DisputeOpening{}

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		a, err := lockAssignment(ctx, tx, d.AssignmentID)
		if err != nil {
			return err
		}
		switch {
		case a.Status == valueobject.AssignmentStatusInDispute:
			return common.ErrDisputeAlreadyOpen
		case a.Status.IsTerminal():
			return common.ErrAssignmentClosed
		}

		payment, err := lockPayment(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if payment.Status.IsFinal() {
			return common.ErrPaymentFinalized
		}

		var open bool
		if err := tx.GetContext(ctx, &open,
			`SELECT EXISTS (SELECT 1 FROM disputes WHERE assignment_id = $1 AND status = 'OPEN')`, a.ID); err != nil {
			return fmt.Errorf("dispute repository: check open %w", err)
		}
		if open {
			return common.ErrDisputeAlreadyOpen
		}

		d.PaymentID = payment.ID
		d.Status = valueobject.DisputeStatusOpen
		if err := tx.GetContext(ctx, d, `
			INSERT INTO disputes (assignment_id, payment_id, initiator_id, reason, evidence, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		`, d.AssignmentID, d.PaymentID, d.InitiatorID, d.Reason, d.Evidence, d.Status); err != nil {
			if common.IsUniqueViolation(err, oneOpenDisputeIndex) {
				return common.ErrDisputeAlreadyOpen
			}
			return fmt.Errorf("dispute repository: create %w", err)
		}

		if result.Assignment, err = setAssignmentStatus(ctx, tx, a.ID, valueobject.AssignmentStatusInDispute); err != nil {
			return err
		}
		if result.Payment, err = setPaymentStatus(ctx, tx, a.ID, valueobject.PaymentStatusDisputed); err != nil {
			return err
		}

		receiver, _ := a.Counterparty(d.InitiatorID)
		if receiver == uuid.Nil {
			receiver = a.PosterID
		}
		if err := insertSystemMessage(ctx, tx, a.ID, d.InitiatorID, receiver, "Dispute raised: "+d.Reason); err != nil {
			return err
		}

		result.Dispute = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID возвращает спор без ветки обсуждения.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, apperror.ErrDisputeNotFound)
}

// GetLatestByAssignment возвращает последний спор по заданию.
func (r *DisputeRepository) GetLatestByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM disputes WHERE assignment_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, assignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get latest %w", err)
	}
	return &d, nil
}

// HasOpen сообщает, есть ли по заданию открытый спор.
func (r *DisputeRepository) HasOpen(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	var open bool
	if err := r.db.GetContext(ctx, &open,
		`SELECT EXISTS (SELECT 1 FROM disputes WHERE assignment_id = $1 AND status = 'OPEN')`, assignmentID); err != nil {
		return false, fmt.Errorf("dispute repository: has open %w", err)
	}
	return open, nil
}

// List возвращает споры по фильтру. ParticipantID ограничивает выборку спорами,
// где пользователь инициатор, заказчик или исполнитель.
func (r *DisputeRepository) List(ctx context.Context, f models.DisputeFilter) ([]models.Dispute, int, error) {
	where := sq.And{}
	if f.Status != nil {
		where = append(where, sq.Eq{"d.status": *f.Status})
	}
	if f.ParticipantID != nil {
		where = append(where, sq.Or{
			sq.Eq{"d.initiator_id": *f.ParticipantID},
			sq.Eq{"a.poster_id": *f.ParticipantID},
			sq.Eq{"a.doer_id": *f.ParticipantID},
		})
	}

	base := func(columns string) sq.SelectBuilder {
		return common.Psql().Select(columns).
			From("disputes d").
			Join("assignments a ON a.id = d.assignment_id").
			Where(where)
	}

	total, err := common.CountBuilder(ctx, r.db, base("COUNT(*)"))
	if err != nil {
		return nil, 0, fmt.Errorf("dispute repository: count %w", err)
	}

	limit, offset := common.Page(f.Limit, f.Offset, 20, 100)
	list := []models.Dispute{}
	if err := common.SelectBuilder(ctx, r.db, &list, base("d.*").
		OrderBy("d.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: list %w", err)
	}
	return list, total, nil
}

// Respond сохраняет ответ второй стороны, пока спор открыт.
func (r *DisputeRepository) Respond(ctx context.Context, id uuid.UUID, response string, evidence models.Attachments) (*models.Dispute, error) {
	return common.GetGuarded[models.Dispute](ctx, r.db, common.ErrDisputeNotOpen, `
		UPDATE disputes SET response = $2, response_evidence = $3, has_response = TRUE
		WHERE id = $1 AND status = 'OPEN'
		RETURNING *
	`, id, response, evidence)
}

// AddFollowUp добавляет сообщение в ветку спора.
func (r *DisputeRepository) AddFollowUp(ctx context.Context, f *models.DisputeFollowUp) error {
	query := `
		INSERT INTO dispute_followups (dispute_id, sender_id, message, evidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, f.DisputeID, f.SenderID, f.Message, f.Evidence).
		Scan(&f.ID, &f.CreatedAt); err != nil {
		return fmt.Errorf("dispute repository: add follow-up %w", err)
	}
	return nil
}

// ListFollowUps возвращает ветку спора по возрастанию времени.
func (r *DisputeRepository) ListFollowUps(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeFollowUp, error) {
	list := []models.DisputeFollowUp{}
	if err := r.db.SelectContext(ctx, &list, `
		SELECT * FROM dispute_followups WHERE dispute_id = $1 ORDER BY created_at ASC, id ASC
	`, disputeID); err != nil {
		return nil, fmt.Errorf("dispute repository: list follow-ups %w", err)
	}
	return list, nil
}

// Resolve закрывает открытый спор решением администратора одной транзакцией:
// спор, задание (COMPLETED/CANCELLED) и платёж (RELEASED/REFUNDED).
func (r *DisputeRepository) Resolve(ctx context.Context, id, adminID uuid.UUID, resolution string, status valueobject.DisputeStatus) (*models.DisputeResolution, error) {
	result := &models.DisputeResolution{}

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := common.GetByID[models.Dispute](ctx, tx, "disputes", id, apperror.ErrDisputeNotFound)
		if err != nil {
			return err
		}
		// Сначала задание: тот же порядок блокировок, что при открытии спора и сдаче работы.
		a, err := lockAssignment(ctx, tx, current.AssignmentID)
		if err != nil {
			return err
		}

		d, err := common.GetGuarded[models.Dispute](ctx, tx, common.ErrDisputeNotOpen, `
			UPDATE disputes SET status = $2, resolution = $3, resolved_by_id = $4, resolved_at = NOW()
			WHERE id = $1 AND status = 'OPEN'
			RETURNING *
		`, id, status, resolution, adminID)
		if err != nil {
			return err
		}

		assignmentStatus, paymentStatus := status.Outcome()
		if result.Assignment, err = setAssignmentStatus(ctx, tx, a.ID, assignmentStatus); err != nil {
			return err
		}
		if result.Payment, err = setPaymentStatus(ctx, tx, a.ID, paymentStatus); err != nil {
			return err
		}

		if err := insertSystemMessage(ctx, tx, a.ID, adminID, a.PosterID,
			fmt.Sprintf("Dispute resolved (%s): %s", status, resolution)); err != nil {
			return err
		}

		result.Dispute = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
