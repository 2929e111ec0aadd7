package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/repository/common"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

// BidRepository хранилище откликов.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindByAssignmentAndUser(ctx context.Context, assignmentID, userID uuid.UUID) (*models.Bid, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Bid, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Bid, error)
	UpdatePending(ctx context.Context, bid *models.Bid) error
	DeletePending(ctx context.Context, id, userID uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	Accept(ctx context.Context, bidID uuid.UUID) (*models.AcceptBidResult, error)
}

// BidService отклики исполнителей и их рассмотрение заказчиком.
type BidService struct {
	repo        BidRepository
	assignments AssignmentReader
	effects     sideEffects
}

// NewBidService создаёт сервис откликов.
func NewBidService(repo BidRepository, assignments AssignmentReader, publisher EventPublisher, notifier Notifier) *BidService {
	return &BidService{
		repo:        repo,
		assignments: assignments,
		effects: sideEffects{
			publisher: publisher,
			notifier:  notifier,
			log:       logger.Component("bid-service"),
		},
	}
}

func validateBid(content string, amount float64) (string, float64, error) {
	if err := validation.ValidateText("текст отклика", content, validation.MaxBidContentLength); err != nil {
		return "", 0, validation.Field("content", err)
	}
	amount, err := valueobject.NewAmount("bid_amount", amount)
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(content), amount, nil
}

// Submit создаёт отклик исполнителя на открытое задание.
func (s *BidService) Submit(ctx context.Context, actor Actor, assignmentID uuid.UUID, content string, amount float64) (*models.Bid, error) {
	if actor.Role != valueobject.RoleDoer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться могут только исполнители")
	}
	content, amount, err := validateBid(content, amount)
	if err != nil {
		return nil, err
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != valueobject.AssignmentStatusOpen {
		return nil, common.ErrAssignmentNotOpen
	}
	if a.IsPoster(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на своё задание")
	}

	existing, err := s.repo.FindByAssignmentAndUser(ctx, assignmentID, actor.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrDuplicateBid
	}

	bid := &models.Bid{
		AssignmentID: assignmentID,
		UserID:       actor.ID,
		Content:      content,
		BidAmount:    amount,
		Status:       valueobject.BidStatusPending,
	}
	if err := s.repo.Create(ctx, bid); err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"bid_id":        bid.ID,
		"assignment_id": assignmentID,
		"user_id":       actor.ID,
	}).Info("отклик создан")

	s.effects.notify(ctx, NotifyInput{
		UserID:  a.PosterID,
		Title:   "New Bid Received",
		Message: fmt.Sprintf("New bid of %.2f on \"%s\"", bid.BidAmount, a.Title),
		Type:    valueobject.NotificationTypeBid,
		Link:    taskLink(a.ID),
	})
	s.publishBid(ctx, a.PosterID, bid)
	return bid, nil
}

// publishBid отправляет отклик целиком заказчику, а в канал задания только краткую запись.
func (s *BidService) publishBid(ctx context.Context, posterID uuid.UUID, bid *models.Bid) {
	s.effects.publish(ctx, ws.UserChannel(posterID), ws.EventNewBid, bid)
	s.effects.publish(ctx, ws.TaskChannel(bid.AssignmentID), ws.EventNewBid, bid.Notice())
}

// loadForPoster читает отклик и задание и проверяет, что действует заказчик.
func (s *BidService) loadForPoster(ctx context.Context, actor Actor, bidID uuid.UUID) (*models.Bid, *models.Assignment, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.assignments.GetByID(ctx, bid.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsPoster(actor.ID) {
		return nil, nil, apperror.New(apperror.ErrCodeForbidden, "рассматривать отклики может только заказчик")
	}
	if a.Status != valueobject.AssignmentStatusOpen {
		return nil, nil, common.ErrAssignmentNotOpen
	}
	if bid.Status != valueobject.BidStatusPending {
		return nil, nil, common.ErrBidNotPending
	}
	return bid, a, nil
}

// Accept принимает отклик. Задание, отклики, платёж и системная запись меняются одной транзакцией,
// уведомления и события отправляются после фиксации.
func (s *BidService) Accept(ctx context.Context, actor Actor, bidID uuid.UUID) (*models.AcceptBidResult, error) {
	bid, a, err := s.loadForPoster(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}
	if bid.UserID == a.PosterID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя принять собственный отклик")
	}

	result, err := s.repo.Accept(ctx, bidID)
	if err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"bid_id":        bidID,
		"assignment_id": a.ID,
		"doer_id":       bid.UserID,
		"rejected":      len(result.Rejected),
	}).Info("отклик принят")

	s.effects.notify(ctx, NotifyInput{
		UserID:  result.Accepted.UserID,
		Title:   "Bid Accepted",
		Message: fmt.Sprintf("Your bid on \"%s\" was accepted", a.Title),
		Type:    valueobject.NotificationTypeBid,
		Link:    taskLink(a.ID),
	})
	s.effects.publish(ctx, ws.BidChannel(result.Accepted.ID), ws.EventBidAccepted, result.Accepted)

	for i := range result.Rejected {
		rejected := &result.Rejected[i]
		s.effects.notify(ctx, NotifyInput{
			UserID:  rejected.UserID,
			Title:   "Bid Not Selected",
			Message: fmt.Sprintf("Another bid was selected for \"%s\"", a.Title),
			Type:    valueobject.NotificationTypeBid,
			Link:    taskLink(a.ID),
		})
		s.effects.publish(ctx, ws.BidChannel(rejected.ID), ws.EventBidRejected, rejected)
	}

	s.effects.publish(ctx, ws.TaskChannel(a.ID), ws.EventTaskUpdated, map[string]any{
		"id":     a.ID,
		"status": result.Assignment.Status,
		"doerId": result.Assignment.DoerID,
	})
	return result, nil
}

// Reject отклоняет один отклик, задание остаётся открытым.
func (s *BidService) Reject(ctx context.Context, actor Actor, bidID uuid.UUID) (*models.Bid, error) {
	_, a, err := s.loadForPoster(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.repo.Reject(ctx, bidID)
	if err != nil {
		return nil, err
	}

	s.effects.notify(ctx, NotifyInput{
		UserID:  rejected.UserID,
		Title:   "Bid Not Selected",
		Message: fmt.Sprintf("Your bid on \"%s\" was declined", a.Title),
		Type:    valueobject.NotificationTypeBid,
		Link:    taskLink(a.ID),
	})
	s.effects.publish(ctx, ws.BidChannel(rejected.ID), ws.EventBidRejected, rejected)
	return rejected, nil
}

// Update меняет текст и сумму своего отклика, пока он не рассмотрен.
func (s *BidService) Update(ctx context.Context, actor Actor, bidID uuid.UUID, content string, amount float64) (*models.Bid, error) {
	content, amount, err := validateBid(content, amount)
	if err != nil {
		return nil, err
	}

	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.UserID != actor.ID {
		return nil, apperror.ErrBidNotFound
	}
	if bid.Status != valueobject.BidStatusPending {
		return nil, common.ErrBidNotPending
	}

	bid.Content = content
	bid.BidAmount = amount
	if err := s.repo.UpdatePending(ctx, bid); err != nil {
		return nil, err
	}

	a, err := s.assignments.GetByID(ctx, bid.AssignmentID)
	if err != nil {
		s.effects.log.WithError(err).WithField("bid_id", bid.ID).Warn("не удалось прочитать задание для события")
		return bid, nil
	}
	s.publishBid(ctx, a.PosterID, bid)
	return bid, nil
}

// Withdraw удаляет свой отклик, пока он не рассмотрен.
func (s *BidService) Withdraw(ctx context.Context, actor Actor, bidID uuid.UUID) error {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.UserID != actor.ID {
		return apperror.ErrBidNotFound
	}
	if bid.Status != valueobject.BidStatusPending {
		return common.ErrBidNotPending
	}
	return s.repo.DeletePending(ctx, bidID, actor.ID)
}

// ListForAssignment возвращает отклики на задание. Заказчик и администратор видят все,
// остальные только свой.
func (s *BidService) ListForAssignment(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]models.Bid, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	bids, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.IsPoster(actor.ID) || actor.IsAdmin() {
		return bids, nil
	}

	own := make([]models.Bid, 0, 1)
	for _, b := range bids {
		if b.UserID == actor.ID {
			own = append(own, b)
		}
	}
	return own, nil
}

// ListMine возвращает отклики пользователя.
func (s *BidService) ListMine(ctx context.Context, actor Actor) ([]models.Bid, error) {
	return s.repo.ListByUser(ctx, actor.ID)
}
