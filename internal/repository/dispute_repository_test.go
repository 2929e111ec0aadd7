package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
)

var (
	assignmentColumns = []string{"id", "title", "status", "poster_id", "doer_id", "budget"}
	paymentColumns    = []string{"id", "assignment_id", "amount", "status", "created_at", "updated_at"}
	disputeColumns    = []string{"id", "assignment_id", "payment_id", "initiator_id", "reason", "status", "has_response", "created_at"}
)

// taskParties участники задания в тестах транзакций.
type taskParties struct {
	assignmentID uuid.UUID
	paymentID    uuid.UUID
	posterID     uuid.UUID
	doerID       uuid.UUID
}

func newTaskParties() taskParties {
	return taskParties{
		assignmentID: uuid.New(),
		paymentID:    uuid.New(),
		posterID:     uuid.New(),
		doerID:       uuid.New(),
	}
}

func (p taskParties) assignmentRow(status valueobject.AssignmentStatus) *sqlmock.Rows {
	return sqlmock.NewRows(assignmentColumns).
		AddRow(p.assignmentID.String(), "Landing", string(status), p.posterID.String(), p.doerID.String(), 500.0)
}

func (p taskParties) paymentRow(status valueobject.PaymentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentColumns).
		AddRow(p.paymentID.String(), p.assignmentID.String(), 450.0, string(status), now, now)
}

func (p taskParties) disputeRow(id uuid.UUID, status valueobject.DisputeStatus) *sqlmock.Rows {
	return sqlmock.NewRows(disputeColumns).
		AddRow(id.String(), p.assignmentID.String(), p.paymentID.String(), p.doerID.String(), "no payment", string(status), false, time.Now())
}

// expectOpenUntilInsert ожидает запросы открытия спора до вставки включительно.
func (p taskParties) expectOpenUntilInsert(mock sqlmock.Sqlmock) *sqlmock.ExpectedQuery {
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM assignments WHERE id = $1 FOR UPDATE")).
		WithArgs(p.assignmentID).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusUnderReview))
	mock.ExpectQuery(q("SELECT * FROM payments WHERE assignment_id = $1 FOR UPDATE")).
		WithArgs(p.assignmentID).
		WillReturnRows(p.paymentRow(valueobject.PaymentStatusPending))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM disputes WHERE assignment_id = $1 AND status = 'OPEN')")).
		WithArgs(p.assignmentID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	return mock.ExpectQuery(q("INSERT INTO disputes")).
		WithArgs(p.assignmentID, p.paymentID, p.doerID, "no payment", sqlmock.AnyArg(), valueobject.DisputeStatusOpen)
}

func TestDisputeRepository_OpenCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)
	p := newTaskParties()
	disputeID := uuid.New()

	p.expectOpenUntilInsert(mock).WillReturnRows(p.disputeRow(disputeID, valueobject.DisputeStatusOpen))
	mock.ExpectQuery(q("UPDATE assignments SET status = $2, updated_at = NOW()")).
		WithArgs(p.assignmentID, valueobject.AssignmentStatusInDispute).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusInDispute))
	mock.ExpectQuery(q("UPDATE payments SET status = $2, updated_at = NOW()")).
		WithArgs(p.assignmentID, valueobject.PaymentStatusDisputed).
		WillReturnRows(p.paymentRow(valueobject.PaymentStatusDisputed))
	mock.ExpectExec(q("INSERT INTO messages")).
		WithArgs(p.assignmentID, p.doerID, p.posterID, "Dispute raised: no payment", valueobject.MessageKindSystem).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Open(context.Background(), &models.Dispute{
		AssignmentID: p.assignmentID,
		InitiatorID:  p.doerID,
		Reason:       "no payment",
	})
	require.NoError(t, err)

	assert.Equal(t, disputeID, result.Dispute.ID)
	assert.Equal(t, p.paymentID, result.Dispute.PaymentID)
	assert.Equal(t, valueobject.AssignmentStatusInDispute, result.Assignment.Status)
	assert.Equal(t, valueobject.PaymentStatusDisputed, result.Payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepository_OpenRollsBackOnSecondOpenDispute(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)
	p := newTaskParties()

	// Параллельный запрос успел вставить спор между проверкой и вставкой.
	p.expectOpenUntilInsert(mock).
		WillReturnError(&pq.Error{Code: "23505", Constraint: oneOpenDisputeIndex})
	mock.ExpectRollback()

	_, err := repo.Open(context.Background(), &models.Dispute{
		AssignmentID: p.assignmentID,
		InitiatorID:  p.doerID,
		Reason:       "no payment",
	})
	assert.ErrorIs(t, err, common.ErrDisputeAlreadyOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepository_OpenRejectsFinalPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)
	p := newTaskParties()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM assignments WHERE id = $1 FOR UPDATE")).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusInProgress))
	mock.ExpectQuery(q("SELECT * FROM payments WHERE assignment_id = $1 FOR UPDATE")).
		WillReturnRows(p.paymentRow(valueobject.PaymentStatusReleased))
	mock.ExpectRollback()

	_, err := repo.Open(context.Background(), &models.Dispute{AssignmentID: p.assignmentID, InitiatorID: p.posterID, Reason: "late"})
	assert.ErrorIs(t, err, common.ErrPaymentFinalized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepository_ResolveCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)
	p := newTaskParties()
	disputeID, adminID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM disputes WHERE id = $1")).
		WithArgs(disputeID).
		WillReturnRows(p.disputeRow(disputeID, valueobject.DisputeStatusOpen))
	mock.ExpectQuery(q("SELECT * FROM assignments WHERE id = $1 FOR UPDATE")).
		WithArgs(p.assignmentID).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusInDispute))
	mock.ExpectQuery(q("UPDATE disputes SET status = $2, resolution = $3, resolved_by_id = $4")).
		WithArgs(disputeID, valueobject.DisputeStatusResolvedRelease, "work delivered", adminID).
		WillReturnRows(p.disputeRow(disputeID, valueobject.DisputeStatusResolvedRelease))
	mock.ExpectQuery(q("UPDATE assignments SET status = $2, updated_at = NOW()")).
		WithArgs(p.assignmentID, valueobject.AssignmentStatusCompleted).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusCompleted))
	mock.ExpectQuery(q("UPDATE payments SET status = $2, updated_at = NOW()")).
		WithArgs(p.assignmentID, valueobject.PaymentStatusReleased).
		WillReturnRows(p.paymentRow(valueobject.PaymentStatusReleased))
	mock.ExpectExec(q("INSERT INTO messages")).
		WithArgs(p.assignmentID, adminID, p.posterID, "Dispute resolved (RESOLVED_RELEASE): work delivered", valueobject.MessageKindSystem).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Resolve(context.Background(), disputeID, adminID, "work delivered", valueobject.DisputeStatusResolvedRelease)
	require.NoError(t, err)

	assert.Equal(t, valueobject.DisputeStatusResolvedRelease, result.Dispute.Status)
	assert.Equal(t, valueobject.AssignmentStatusCompleted, result.Assignment.Status)
	assert.Equal(t, valueobject.PaymentStatusReleased, result.Payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepository_ResolveRollsBackWhenAlreadyResolved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)
	p := newTaskParties()
	disputeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM disputes WHERE id = $1")).
		WillReturnRows(p.disputeRow(disputeID, valueobject.DisputeStatusResolvedRefund))
	mock.ExpectQuery(q("SELECT * FROM assignments WHERE id = $1 FOR UPDATE")).
		WillReturnRows(p.assignmentRow(valueobject.AssignmentStatusCancelled))
	mock.ExpectQuery(q("UPDATE disputes SET status = $2")).
		WillReturnError(sql.ErrNoRows)
	// Задание и платёж не трогаются.
	mock.ExpectRollback()

	_, err := repo.Resolve(context.Background(), disputeID, uuid.New(), "again", valueobject.DisputeStatusResolvedRelease)
	assert.ErrorIs(t, err, common.ErrDisputeNotOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
