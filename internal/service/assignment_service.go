package service

import (
	"context"
	"strings"
	"time"

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

// ErrEscrowUnsettled исполнитель не может сам завершить задание, пока эскроу не выплачен или не возвращён.
var ErrEscrowUnsettled = apperror.New(apperror.ErrCodeConflict, "задание завершается одобрением работы или решением спора")

// AssignmentRepository хранилище заданий.
type AssignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	List(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, int, error)
	UpdateOpen(ctx context.Context, a *models.Assignment) error
	DeleteOpen(ctx context.Context, id, posterID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AssignmentStatus) (*models.Assignment, error)
}

// PaymentReader читает эскроу-платежи.
type PaymentReader interface {
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Payment, error)
	HasFinal(ctx context.Context, assignmentID uuid.UUID) (bool, error)
}

// AssignmentService ведёт жизненный цикл задания.
type AssignmentService struct {
	repo     AssignmentRepository
	payments PaymentReader
	effects  sideEffects
	now      func() time.Time
}

// NewAssignmentService создаёт сервис заданий.
func NewAssignmentService(repo AssignmentRepository, payments PaymentReader, publisher EventPublisher, notifier Notifier) *AssignmentService {
	return &AssignmentService{
		repo:     repo,
		payments: payments,
		effects: sideEffects{
			publisher: publisher,
			notifier:  notifier,
			log:       logger.Component("assignment-service"),
		},
		now: time.Now,
	}
}

// AssignmentInput поля задания, которые задаёт заказчик.
type AssignmentInput struct {
	Title       string
	Description string
	Category    string
	Budget      float64
	Deadline    *time.Time
	Attachments any
}

// AssignmentPage страница списка заданий.
type AssignmentPage struct {
	Items  []models.Assignment `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *AssignmentService) validateInput(in AssignmentInput) (*models.Assignment, error) {
	if err := validation.ValidateTaskTitle(in.Title); err != nil {
		return nil, validation.Field("title", err)
	}
	if err := validation.ValidateText("описание", in.Description, validation.MaxTaskDescriptionLength); err != nil {
		return nil, validation.Field("description", err)
	}
	if err := validation.ValidateLength("категория", in.Category, 0, validation.MaxCategoryLength); err != nil {
		return nil, validation.Field("category", err)
	}
	budget, err := valueobject.NewAmount("budget", in.Budget)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDeadline(in.Deadline, s.now()); err != nil {
		return nil, validation.Field("deadline", err)
	}

	attachments := models.NormalizeAttachments(in.Attachments)
	if len(attachments) > validation.MaxAttachmentsCount {
		return nil, apperror.Validation("слишком много вложений", map[string]string{"attachments": "не более 20 файлов"})
	}

	return &models.Assignment{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Budget:      budget,
		Deadline:    in.Deadline,
		Attachments: attachments,
	}, nil
}

// Create публикует новое задание в статусе OPEN. Создавать задания могут заказчики и администраторы.
func (s *AssignmentService) Create(ctx context.Context, actor Actor, in AssignmentInput) (*models.Assignment, error) {
	if actor.Role != valueobject.RolePoster && !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать задания может только заказчик")
	}

	a, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	a.PosterID = actor.ID
	a.Status = valueobject.AssignmentStatusOpen

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"poster_id":     a.PosterID,
	}).Info("задание создано")
	return a, nil
}

// Get возвращает задание.
func (s *AssignmentService) Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

// List возвращает задания по фильтру.
func (s *AssignmentService) List(ctx context.Context, f models.AssignmentFilter) (*AssignmentPage, error) {
	f.Limit, f.Offset = common.Page(f.Limit, f.Offset, 20, 100)
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &AssignmentPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Update меняет условия задания, пока на него можно откликаться.
// Чужое задание выглядит как отсутствующее.
func (s *AssignmentService) Update(ctx context.Context, actor Actor, id uuid.UUID, in AssignmentInput) (*models.Assignment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPoster(actor.ID) {
		return nil, apperror.ErrAssignmentNotFound
	}
	if current.Status != valueobject.AssignmentStatusOpen {
		return nil, common.ErrAssignmentNotOpen
	}

	a, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.PosterID = actor.ID

	if err := s.repo.UpdateOpen(ctx, a); err != nil {
		return nil, err
	}

	s.effects.publish(ctx, ws.TaskChannel(a.ID), ws.EventTaskUpdated, a)
	return a, nil
}

// Delete удаляет открытое задание заказчика.
func (s *AssignmentService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsPoster(actor.ID) {
		return apperror.ErrAssignmentNotFound
	}
	if current.Status != valueobject.AssignmentStatusOpen {
		return common.ErrAssignmentNotOpen
	}

	if err := s.repo.DeleteOpen(ctx, id, actor.ID); err != nil {
		return err
	}

	s.effects.log.WithField("assignment_id", id).Info("задание удалено")
	return nil
}

// UpdateStatus переводит задание по таблице переходов исполнителя.
// Обновление условное: если статус успели изменить, возвращается Conflict.
func (s *AssignmentService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*models.Assignment, error) {
	next, err := valueobject.NewAssignmentStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsDoer(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "менять статус может только исполнитель задания")
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, current.Status.TransitionError(next)
	}
	if next == valueobject.AssignmentStatusCompleted {
		settled, err := s.payments.HasFinal(ctx, id)
		if err != nil {
			return nil, err
		}
		if !settled {
			return nil, ErrEscrowUnsettled
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		return nil, err
	}

	s.effects.log.WithFields(logrus.Fields{
		"assignment_id": id,
		"from":          current.Status,
		"to":            next,
	}).Info("статус задания изменён")

	s.effects.publish(ctx, ws.TaskChannel(id), ws.EventTaskUpdated, map[string]any{
		"id":     id,
		"status": updated.Status,
	})
	s.effects.notify(ctx, NotifyInput{
		UserID:  updated.PosterID,
		Title:   "Task Status Updated",
		Message: "Task \"" + updated.Title + "\" is now " + string(updated.Status),
		Type:    valueobject.NotificationTypeTask,
		Link:    taskLink(id),
	})
	return updated, nil
}

// GetPayment возвращает эскроу-платёж задания участнику или администратору.
func (s *AssignmentService) GetPayment(ctx context.Context, actor Actor, id uuid.UUID) (*models.Payment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canView(a) {
		return nil, apperror.ErrForbidden
	}
	return s.payments.GetByAssignment(ctx, id)
}
