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

var ErrNoEscrow = apperror.New(apperror.ErrCodeConflict, "по заданию нет эскроу-платежа")

// DisputeRepository хранилище споров.
type DisputeRepository interface {
	Open(ctx context.Context, d *models.Dispute) (*models.DisputeOpening, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetLatestByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Dispute, error)
	HasOpen(ctx context.Context, assignmentID uuid.UUID) (bool, error)
	List(ctx context.Context, f models.DisputeFilter) ([]models.Dispute, int, error)
	Respond(ctx context.Context, id uuid.UUID, response string, evidence models.Attachments) (*models.Dispute, error)
	AddFollowUp(ctx context.Context, f *models.DisputeFollowUp) error
	ListFollowUps(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeFollowUp, error)
	Resolve(ctx context.Context, id, adminID uuid.UUID, resolution string, status valueobject.DisputeStatus) (*models.DisputeResolution, error)
}

// AdminDirectory список администраторов для уведомлений о спорах.
type AdminDirectory interface {
	ListByRole(ctx context.Context, role valueobject.Role) ([]models.User, error)
}

// DisputeService споры по заданиям и арбитраж.
type DisputeService struct {
	repo        DisputeRepository
	assignments AssignmentReader
	payments    PaymentReader
	admins      AdminDirectory
	effects     sideEffects
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepository, assignments AssignmentReader, payments PaymentReader, admins AdminDirectory, publisher EventPublisher, notifier Notifier) *DisputeService {
	return &DisputeService{
		repo:        repo,
		assignments: assignments,
		payments:    payments,
		admins:      admins,
		effects: sideEffects{
			publisher: publisher,
			notifier:  notifier,
			log:       logger.Component("dispute-service"),
		},
	}
}

// DisputePage страница споров.
type DisputePage struct {
	Items []models.Dispute `json:"items"`
	Total int              `json:"total"`
}

func isDisputeParty(d *models.Dispute, a *models.Assignment, userID uuid.UUID) bool {
	return d.InitiatorID == userID || a.IsParticipant(userID)
}

// Create открывает спор по заданию. Спор, статус задания IN_DISPUTE и статус платежа DISPUTED
// фиксируются одной транзакцией.
func (s *DisputeService) Create(ctx context.Context, actor Actor, assignmentID uuid.UUID, reason string, evidence any) (*models.DisputeOpening, error) {
	if err := validation.ValidateText("причина", reason, validation.MaxReasonLength); err != nil {
		return nil, validation.Field("reason", err)
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsParticipant(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только заказчик или исполнитель")
	}

	open, err := s.repo.HasOpen(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, common.ErrDisputeAlreadyOpen
	}

	payment, err := s.payments.GetByAssignment(ctx, assignmentID)
	if apperror.IsNotFound(err) {
		return nil, ErrNoEscrow
	}
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, common.ErrAssignmentClosed
	}
	if payment.Status.IsFinal() {
		return nil, common.ErrPaymentFinalized
	}

	opening, err := s.repo.Open(ctx, &models.Dispute{
		AssignmentID: assignmentID,
		InitiatorID:  actor.ID,
		Reason:       strings.TrimSpace(reason),
		Evidence:     models.NormalizeAttachments(evidence),
	})
	if err != nil {
		return nil, err
	}
	d := opening.Dispute

	s.effects.log.WithFields(logrus.Fields{
		"dispute_id":    d.ID,
		"assignment_id": assignmentID,
		"initiator_id":  actor.ID,
	}).Info("спор открыт")

	if counterparty, ok := a.Counterparty(actor.ID); ok {
		s.effects.notify(ctx, NotifyInput{
			UserID:  counterparty,
			Title:   "Dispute Opened",
			Message: fmt.Sprintf("A dispute was raised on \"%s\": %s", a.Title, d.Reason),
			Type:    valueobject.NotificationTypeDispute,
			Link:    disputeLink(d.ID),
		})
	}
	s.notifyAdmins(ctx, a, d)

	s.effects.publish(ctx, ws.TaskChannel(assignmentID), ws.EventTaskUpdated, map[string]any{
		"id":        assignmentID,
		"status":    opening.Assignment.Status,
		"disputeId": d.ID,
	})
	return opening, nil
}

func (s *DisputeService) notifyAdmins(ctx context.Context, a *models.Assignment, d *models.Dispute) {
	admins, err := s.admins.ListByRole(ctx, valueobject.RoleAdmin)
	if err != nil {
		s.effects.log.WithError(err).Warn("не удалось получить список администраторов")
		return
	}
	for _, admin := range admins {
		s.effects.notify(ctx, NotifyInput{
			UserID:  admin.ID,
			Title:   "New Dispute",
			Message: fmt.Sprintf("Dispute on \"%s\" requires arbitration", a.Title),
			Type:    valueobject.NotificationTypeDispute,
			Link:    disputeLink(d.ID),
		})
	}
}

// Respond сохраняет ответ стороны на открытый спор.
func (s *DisputeService) Respond(ctx context.Context, actor Actor, disputeID uuid.UUID, response string, evidence any) (*models.Dispute, error) {
	if err := validation.ValidateText("ответ", response, validation.MaxReasonLength); err != nil {
		return nil, validation.Field("response", err)
	}

	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != valueobject.DisputeStatusOpen {
		return nil, common.ErrDisputeNotOpen
	}
	a, err := s.assignments.GetByID(ctx, d.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !isDisputeParty(d, a, actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отвечать на спор могут только стороны задания")
	}

	updated, err := s.repo.Respond(ctx, disputeID, strings.TrimSpace(response), models.NormalizeAttachments(evidence))
	if err != nil {
		return nil, err
	}

	if other, ok := a.Counterparty(actor.ID); ok {
		s.effects.notify(ctx, NotifyInput{
			UserID:  other,
			Title:   "Dispute Response",
			Message: fmt.Sprintf("A response was submitted in the dispute on \"%s\"", a.Title),
			Type:    valueobject.NotificationTypeDispute,
			Link:    disputeLink(disputeID),
		})
	}
	return updated, nil
}

// AddFollowUp добавляет сообщение в ветку спора. Ветка остаётся открытой и после решения.
func (s *DisputeService) AddFollowUp(ctx context.Context, actor Actor, disputeID uuid.UUID, message string, evidence any) (*models.DisputeFollowUp, error) {
	if err := validation.ValidateText("сообщение", message, validation.MaxMessageLength); err != nil {
		return nil, validation.Field("message", err)
	}

	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.GetByID(ctx, d.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !isDisputeParty(d, a, actor.ID) && !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "писать в спор могут только его участники")
	}

	f := &models.DisputeFollowUp{
		DisputeID: disputeID,
		SenderID:  actor.ID,
		Message:   strings.TrimSpace(message),
		Evidence:  models.NormalizeAttachments(evidence),
	}
	if err := s.repo.AddFollowUp(ctx, f); err != nil {
		return nil, err
	}

	for _, userID := range []uuid.UUID{a.PosterID, derefUUID(a.DoerID)} {
		if userID == actor.ID {
			continue
		}
		s.effects.notify(ctx, NotifyInput{
			UserID:  userID,
			Title:   "Dispute Update",
			Message: fmt.Sprintf("New message in the dispute on \"%s\"", a.Title),
			Type:    valueobject.NotificationTypeDispute,
			Link:    disputeLink(disputeID),
		})
	}
	return f, nil
}

// Resolve закрывает спор решением администратора. Спор, задание и платёж меняются одной транзакцией,
// повторное решение того же спора возвращает Conflict.
func (s *DisputeService) Resolve(ctx context.Context, actor Actor, disputeID uuid.UUID, resolution, status string) (*models.DisputeResolution, error) {
	if !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "решать споры может только администратор")
	}
	outcome, err := valueobject.NewResolutionStatus(status)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateText("решение", resolution, validation.MaxReasonLength); err != nil {
		return nil, validation.Field("resolution", err)
	}

	result, err := s.repo.Resolve(ctx, disputeID, actor.ID, strings.TrimSpace(resolution), outcome)
	if err != nil {
		return nil, err
	}
	a := result.Assignment

	s.effects.log.WithFields(logrus.Fields{
		"dispute_id":    disputeID,
		"assignment_id": a.ID,
		"admin_id":      actor.ID,
		"outcome":       outcome,
	}).Info("спор решён")

	posterMsg, doerMsg := resolutionMessages(outcome, a.Title)
	s.effects.notify(ctx, NotifyInput{
		UserID:  a.PosterID,
		Title:   "Dispute Resolved",
		Message: posterMsg,
		Type:    valueobject.NotificationTypeDispute,
		Link:    disputeLink(disputeID),
	})
	s.effects.notify(ctx, NotifyInput{
		UserID:  derefUUID(a.DoerID),
		Title:   "Dispute Resolved",
		Message: doerMsg,
		Type:    valueobject.NotificationTypeDispute,
		Link:    disputeLink(disputeID),
	})
	s.effects.publish(ctx, ws.TaskChannel(a.ID), ws.EventTaskUpdated, map[string]any{
		"id":            a.ID,
		"status":        a.Status,
		"disputeId":     disputeID,
		"disputeStatus": result.Dispute.Status,
	})
	return result, nil
}

func resolutionMessages(outcome valueobject.DisputeStatus, title string) (string, string) {
	if outcome == valueobject.DisputeStatusResolvedRelease {
		return fmt.Sprintf("The dispute on \"%s\" was resolved in favour of the doer, payment released", title),
			fmt.Sprintf("The dispute on \"%s\" was resolved in your favour, payment released to you", title)
	}
	return fmt.Sprintf("The dispute on \"%s\" was resolved in your favour, payment refunded to you", title),
		fmt.Sprintf("The dispute on \"%s\" was resolved with a refund to the poster", title)
}

// IsAssignmentInDispute сообщает, есть ли по заданию открытый спор.
func (s *DisputeService) IsAssignmentInDispute(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	return s.repo.HasOpen(ctx, assignmentID)
}

// Get возвращает спор с веткой обсуждения. Посторонним спор не виден.
func (s *DisputeService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withFollowUps(ctx, actor, d)
}

// GetByAssignment возвращает последний спор по заданию.
func (s *DisputeService) GetByAssignment(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*models.Dispute, error) {
	d, err := s.repo.GetLatestByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.withFollowUps(ctx, actor, d)
}

func (s *DisputeService) withFollowUps(ctx context.Context, actor Actor, d *models.Dispute) (*models.Dispute, error) {
	if !actor.IsAdmin() {
		a, err := s.assignments.GetByID(ctx, d.AssignmentID)
		if err != nil {
			return nil, err
		}
		if !isDisputeParty(d, a, actor.ID) {
			return nil, apperror.ErrDisputeNotFound
		}
	}

	followUps, err := s.repo.ListFollowUps(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.FollowUps = followUps
	return d, nil
}

// List возвращает споры. Администратор видит все, остальные только свои.
func (s *DisputeService) List(ctx context.Context, actor Actor, f models.DisputeFilter) (*DisputePage, error) {
	if !actor.IsAdmin() {
		id := actor.ID
		f.ParticipantID = &id
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &DisputePage{Items: items, Total: total}, nil
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
