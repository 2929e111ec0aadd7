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

// SubmissionRepository хранилище сданных работ.
type SubmissionRepository interface {
	Create(ctx context.Context, s *models.Submission) (*models.Assignment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Submission, error)
	Review(ctx context.Context, submissionID uuid.UUID, decision valueobject.SubmissionStatus) (*models.SubmissionReview, error)
}

// DisputeChecker сообщает об открытом споре по заданию.
type DisputeChecker interface {
	HasOpen(ctx context.Context, assignmentID uuid.UUID) (bool, error)
}

// SubmissionService сдача и проверка работ.
type SubmissionService struct {
	repo        SubmissionRepository
	assignments AssignmentReader
	disputes    DisputeChecker
	payments    PaymentReader
	effects     sideEffects
}

// NewSubmissionService создаёт сервис работ.
func NewSubmissionService(repo SubmissionRepository, assignments AssignmentReader, disputes DisputeChecker, payments PaymentReader, publisher EventPublisher, notifier Notifier) *SubmissionService {
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		disputes:    disputes,
		payments:    payments,
		effects: sideEffects{
			publisher: publisher,
			notifier:  notifier,
			log:       logger.Component("submission-service"),
		},
	}
}

// Create сдаёт работу по заданию. Работа в статусе IN_PROGRESS переводит задание на проверку.
func (s *SubmissionService) Create(ctx context.Context, actor Actor, assignmentID uuid.UUID, content string, attachments any) (*models.Submission, error) {
	if err := validation.ValidateText("описание работы", content, validation.MaxMessageLength); err != nil {
		return nil, validation.Field("content", err)
	}
	files := models.NormalizeAttachments(attachments)
	if len(files) > validation.MaxAttachmentsCount {
		return nil, apperror.Validation("слишком много вложений", map[string]string{"attachments": "не более 20 файлов"})
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsDoer(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "сдать работу может только исполнитель задания")
	}
	open, err := s.disputes.HasOpen(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, common.ErrAssignmentInDispute
	}
	if a.Status.IsTerminal() {
		return nil, common.ErrAssignmentClosed
	}
	final, err := s.payments.HasFinal(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if final {
		return nil, common.ErrPaymentFinalized
	}

	sub := &models.Submission{
		AssignmentID: assignmentID,
		UserID:       actor.ID,
		Content:      strings.TrimSpace(content),
		Attachments:  files,
		Status:       valueobject.SubmissionStatusPending,
	}
	updated, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"assignment_id": assignmentID,
		"status":        updated.Status,
	}).Info("работа сдана")

	s.effects.notify(ctx, NotifyInput{
		UserID:  a.PosterID,
		Title:   "New Submission",
		Message: fmt.Sprintf("Work was submitted for \"%s\"", a.Title),
		Type:    valueobject.NotificationTypeSubmission,
		Link:    taskLink(assignmentID),
	})
	s.effects.publish(ctx, ws.TaskChannel(assignmentID), ws.EventTaskUpdated, map[string]any{
		"id":           assignmentID,
		"status":       updated.Status,
		"submissionId": sub.ID,
	})
	return sub, nil
}

// Review фиксирует решение заказчика по работе: approved или rejected.
func (s *SubmissionService) Review(ctx context.Context, actor Actor, submissionID uuid.UUID, status string) (*models.SubmissionReview, error) {
	decision, err := valueobject.NewReviewDecision(status)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.GetByID(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsPoster(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "проверять работу может только заказчик")
	}
	if sub.Status != valueobject.SubmissionStatusPending {
		return nil, common.ErrSubmissionReviewed
	}

	result, err := s.repo.Review(ctx, submissionID, decision)
	if err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"assignment_id": a.ID,
		"decision":      decision,
	}).Info("работа проверена")

	title, message := "Submission Rejected", fmt.Sprintf("Your submission for \"%s\" was rejected, please revise it", a.Title)
	if decision == valueobject.SubmissionStatusApproved {
		title, message = "Submission Approved", fmt.Sprintf("Your submission for \"%s\" was approved and the payment released", a.Title)
	}
	s.effects.notify(ctx, NotifyInput{
		UserID:  sub.UserID,
		Title:   title,
		Message: message,
		Type:    valueobject.NotificationTypeSubmission,
		Link:    taskLink(a.ID),
	})
	s.effects.publish(ctx, ws.TaskChannel(a.ID), ws.EventSubmissionStatusUpdated, map[string]any{
		"submissionId": submissionID,
		"status":       result.Submission.Status,
		"taskStatus":   result.Assignment.Status,
	})
	return result, nil
}

// List возвращает работы по заданию участникам и администратору.
func (s *SubmissionService) List(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]models.Submission, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(a) {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListByAssignment(ctx, assignmentID)
}
