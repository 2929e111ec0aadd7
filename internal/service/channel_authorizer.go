package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

// AssignmentReader читает задания.
type AssignmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
}

// BidReader читает отклики.
type BidReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
}

// ChannelAuthorizer проверяет подписку WebSocket клиента на каналы заданий и откликов.
// Канал задания доступен участникам, а пока задание открыто, любому пользователю.
// Канал отклика доступен автору отклика и заказчику.
type ChannelAuthorizer struct {
	assignments AssignmentReader
	bids        BidReader
}

// NewChannelAuthorizer создаёт проверку подписок.
func NewChannelAuthorizer(assignments AssignmentReader, bids BidReader) *ChannelAuthorizer {
	return &ChannelAuthorizer{assignments: assignments, bids: bids}
}

// CanSubscribe реализует ws.ChannelAuthorizer.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, role string, kind ws.ChannelKind, id uuid.UUID) (bool, error) {
	if valueobject.Role(role) == valueobject.RoleAdmin {
		return true, nil
	}

	switch kind {
	case ws.ChannelUser:
		return userID == id, nil
	case ws.ChannelTask:
		assignment, err := a.assignments.GetByID(ctx, id)
		if apperror.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return assignment.Status == valueobject.AssignmentStatusOpen || assignment.IsParticipant(userID), nil
	case ws.ChannelBid:
		bid, err := a.bids.GetByID(ctx, id)
		if apperror.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if bid.UserID == userID {
			return true, nil
		}
		assignment, err := a.assignments.GetByID(ctx, bid.AssignmentID)
		if err != nil {
			return false, err
		}
		return assignment.IsPoster(userID), nil
	}
	return false, nil
}
